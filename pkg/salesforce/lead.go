package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadSource marks leads created by prospect discovery.
const LeadSource = "Prospect Discovery"

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	FirstName   string `json:"FirstName" salesforce:"FirstName"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Company     string `json:"Company" salesforce:"Company"`
	Email       string `json:"Email" salesforce:"Email"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	Website     string `json:"Website" salesforce:"Website"`
	Industry    string `json:"Industry" salesforce:"Industry"`
	City        string `json:"City" salesforce:"City"`
	Status      string `json:"Status" salesforce:"Status"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
	Description string `json:"Description" salesforce:"Description"`
}

var leadFields = []string{
	"Id", "FirstName", "LastName", "Company", "Email", "Phone", "Website",
	"Industry", "City", "Status", "Rating", "LeadSource", "Description",
}

// Fields returns the writable fields of l, omitting empty values and Id.
func (l Lead) Fields() map[string]any {
	all := map[string]string{
		"FirstName":   l.FirstName,
		"LastName":    l.LastName,
		"Company":     l.Company,
		"Email":       l.Email,
		"Phone":       l.Phone,
		"Website":     l.Website,
		"Industry":    l.Industry,
		"City":        l.City,
		"Status":      l.Status,
		"Rating":      l.Rating,
		"LeadSource":  l.LeadSource,
		"Description": l.Description,
	}
	out := make(map[string]any, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// FindLeadByID returns the Lead with the given ID, or nil if none exists.
func FindLeadByID(ctx context.Context, c Client, id string) (*Lead, error) {
	return findLead(ctx, c, "Id", id)
}

// FindLeadByWebsite returns the first Lead whose Website matches, or nil.
func FindLeadByWebsite(ctx context.Context, c Client, website string) (*Lead, error) {
	return findLead(ctx, c, "Website", website)
}

func findLead(ctx context.Context, c Client, field, value string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE %s = '%s' LIMIT 1",
		strings.Join(leadFields, ", "), field, escapeSoql(value),
	)
	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by %s %s", strings.ToLower(field), value))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// CreateLead inserts a Lead and returns the new Salesforce ID. Salesforce
// requires LastName and Company.
func CreateLead(ctx context.Context, c Client, l Lead) (string, error) {
	if l.LastName == "" || l.Company == "" {
		return "", eris.New("sf: lead LastName and Company are required")
	}
	if l.LeadSource == "" {
		l.LeadSource = LeadSource
	}
	id, err := c.InsertOne(ctx, "Lead", l.Fields())
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// UpdateLead writes the non-empty fields of l to the Lead with the given ID.
func UpdateLead(ctx context.Context, c Client, id string, l Lead) error {
	if id == "" {
		return eris.New("sf: lead id is required")
	}
	fields := l.Fields()
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Lead", id, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update lead %s", id))
	}
	return nil
}

// LeadUpdate holds a lead ID and the fields to update.
type LeadUpdate struct {
	ID     string
	Fields map[string]any
}

// BulkUpdateLeads splits updates into batches of 200 and sends them via
// UpdateCollection.
func BulkUpdateLeads(ctx context.Context, c Client, updates []LeadUpdate) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(updates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updates))
		records := make([]CollectionRecord, 0, end-start)
		for _, u := range updates[start:end] {
			records = append(records, CollectionRecord(u))
		}
		results, err := c.UpdateCollection(ctx, "Lead", records)
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: bulk update leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// SplitName splits a contact name into first and last names. Single-word
// names become the last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// escapeSoql escapes single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
