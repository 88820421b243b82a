package crmsync

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/salesforce"
)

// SalesforceRefKey stores the Salesforce Lead id on a profile.
const SalesforceRefKey = "salesforce_lead_id"

const (
	unknownContact   = "Unknown"
	notProvided      = "[not provided]"
	maxDescription   = 32000
	descriptionSep   = "\n\n"
	leadOpen         = "Open - Not Contacted"
	leadWorking      = "Working - Contacted"
	leadConverted    = "Closed - Converted"
	leadNotConverted = "Closed - Not Converted"
)

var leadStatus = map[model.Status]string{
	model.StatusDiscovered: leadOpen,
	model.StatusQualified:  leadOpen,
	model.StatusContacted:  leadWorking,
	model.StatusEngaged:    leadWorking,
	model.StatusConverted:  leadConverted,
	model.StatusRejected:   leadNotConverted,
	model.StatusArchived:   leadNotConverted,
}

var leadRating = map[model.Relevance]string{
	model.RelevanceHigh:   "Hot",
	model.RelevanceMedium: "Warm",
	model.RelevanceLow:    "Cold",
}

// SalesforceSink writes profiles as Salesforce Leads.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink returns a sink using c.
func NewSalesforceSink(c salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: c}
}

func (s *SalesforceSink) Name() string   { return "salesforce" }
func (s *SalesforceSink) RefKey() string { return SalesforceRefKey }

// Push updates the Lead recorded in ref, or one with the same website, and
// creates a Lead otherwise. A ref whose Lead was deleted is replaced.
func (s *SalesforceSink) Push(ctx context.Context, p *model.Profile, ref string) (string, bool, error) {
	lead := LeadFromProfile(p)

	var existing *salesforce.Lead
	var err error
	if ref != "" {
		if existing, err = salesforce.FindLeadByID(ctx, s.client, ref); err != nil {
			return "", false, err
		}
	}
	if existing == nil && lead.Website != "" {
		if existing, err = salesforce.FindLeadByWebsite(ctx, s.client, lead.Website); err != nil {
			return "", false, err
		}
	}

	if existing != nil {
		if err := salesforce.UpdateLead(ctx, s.client, existing.ID, lead); err != nil {
			return "", false, err
		}
		return existing.ID, false, nil
	}

	id, err := salesforce.CreateLead(ctx, s.client, lead)
	if err != nil {
		return "", false, eris.Wrapf(err, "crmsync: create lead for %s", p.ID)
	}
	return id, true, nil
}

// LeadFromProfile maps p onto a Lead. Company-like prospects use the
// profile name as the company and the first decision maker as the contact;
// people use their own name.
func LeadFromProfile(p *model.Profile) salesforce.Lead {
	l := salesforce.Lead{
		Email:       model.Deref(p.ContactInfo.Email),
		Phone:       model.Deref(p.ContactInfo.Phone),
		Website:     model.Deref(p.ContactInfo.Website),
		Industry:    p.Industry,
		City:        p.Location,
		Status:      leadStatus[p.Status],
		Rating:      leadRating[p.GoalAlignment.RelevanceScore],
		LeadSource:  salesforce.LeadSource,
		Description: leadDescription(p),
	}

	switch p.ProspectType {
	case model.ProspectTypeIndividual, model.ProspectTypeEntrepreneur, model.ProspectTypeInvestor:
		l.FirstName, l.LastName = salesforce.SplitName(p.Name)
		l.Company = notProvided
	default:
		l.Company = p.Name
		if len(p.DecisionMakers) > 0 {
			l.FirstName, l.LastName = salesforce.SplitName(p.DecisionMakers[0])
		}
	}
	if l.LastName == "" {
		l.LastName = unknownContact
	}
	return l
}

func leadDescription(p *model.Profile) string {
	var parts []string
	if p.BusinessDescription != "" {
		parts = append(parts, p.BusinessDescription)
	}
	if g := p.DiscoveryMetadata.CompanyGoal; g != "" {
		parts = append(parts, "Goal: "+g)
	}
	if len(p.GoalAlignment.FitReasons) > 0 {
		parts = append(parts, "Fit: "+strings.Join(p.GoalAlignment.FitReasons, "; "))
	}
	if p.GoalAlignment.AlignmentNotes != "" {
		parts = append(parts, p.GoalAlignment.AlignmentNotes)
	}
	d := strings.Join(parts, descriptionSep)
	if r := []rune(d); len(r) > maxDescription {
		d = string(r[:maxDescription])
	}
	return d
}
