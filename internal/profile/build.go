package profile

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/prospect-cli/internal/model"
)

// UnknownName names drafts that arrive without one.
const UnknownName = "Unknown Prospect"

// InsightCategory is the note category for qualification insights.
const InsightCategory = "research"

var (
	emailRe    = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	linkedinRe = regexp.MustCompile(`linkedin\.com/[\w/]+`)
	lower      = cases.Lower(language.Und)
)

// containsAny reports whether s (already lower-cased) contains any of words.
func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Slug lower-cases s and replaces spaces with underscores for tag values.
func Slug(s string) string {
	return strings.ReplaceAll(lower.String(strings.TrimSpace(s)), " ", "_")
}

// BuildFromDraft turns an extracted draft into a new profile for the given
// discovering company and goal. Nothing is persisted.
func BuildFromDraft(d model.Draft, company model.CompanyProfile, goal, sessionID string) *model.Profile {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = UnknownName
	}
	p := model.New(name, inferType(d, goal))

	p.BusinessDescription = firstNonEmpty(d.Business, d.Industry)
	p.Industry = d.Industry
	p.Location = d.Location
	p.CompanySize = d.Size
	p.CompanyStage = d.Stage
	if p.CompanyStage == "" && d.Founded != "" {
		p.CompanyStage = "Founded " + d.Founded
	}

	p.ContactInfo = contactInfo(d)
	p.GoalAlignment = alignment(d)

	p.DiscoveryMetadata = model.DiscoveryMetadata{
		DiscoveryDate:      p.CreatedAt,
		SourceQuery:        d.SourceQuery,
		SearchContext:      d.SearchContext,
		CompanyGoal:        goal,
		DiscoveringCompany: company.Name,
		SessionID:          sessionID,
	}

	p.RecentActivities = nonEmpty(d.Activity, d.Signals)
	p.PainPoints = nonEmpty(d.Need, d.Challenge)
	p.BuyingSignals = buyingSignals(d)
	p.BudgetIndicators = budgetIndicators(d)
	p.DecisionMakers = decisionMakers(d)
	p.OpportunityDescription = firstNonEmpty(d.Opportunity, d.Need)

	if d.Qualified {
		p.Status = model.StatusQualified
	}
	for _, k := range slices.Sorted(maps.Keys(d.Insights)) {
		if d.Insights[k] == "" {
			continue
		}
		p.Notes = append(p.Notes, model.Note{
			Timestamp: p.CreatedAt,
			Category:  InsightCategory,
			Content:   k + ": " + d.Insights[k],
			User:      model.SystemUser,
		})
	}

	p.Tags = initialTags(d, goal, p)
	return p
}

func inferType(d model.Draft, goal string) model.ProspectType {
	declared := lower.String(d.Type)
	switch {
	case strings.Contains(declared, "company"):
		return model.ProspectTypeCompany
	case strings.Contains(declared, "individual"):
		return model.ProspectTypeIndividual
	case strings.Contains(declared, "entrepreneur"):
		return model.ProspectTypeEntrepreneur
	}

	g := lower.String(goal)
	switch {
	case containsAny(g, "investor", "funding"):
		return model.ProspectTypeInvestor
	case containsAny(g, "partner", "collaboration"):
		return model.ProspectTypePartner
	case containsAny(g, "client", "customer"):
		return model.ProspectTypeClient
	}

	biz := lower.String(d.Business)
	switch {
	case containsAny(biz, "ceo", "founder"):
		return model.ProspectTypeIndividual
	case containsAny(biz, "company", "corporation"):
		return model.ProspectTypeCompany
	}
	return model.ProspectTypeOther
}

func contactInfo(d model.Draft) model.ContactInfo {
	ci := model.ContactInfo{
		Website: model.StringPtr(d.Website),
		Phone:   model.StringPtr(d.Phone),
		Twitter: model.StringPtr(d.Twitter),
		Other:   map[string]string{},
	}
	if d.Contacts == "" {
		return ci
	}
	if m := emailRe.FindString(d.Contacts); m != "" {
		ci.Email = model.StringPtr(m)
	}
	if m := linkedinRe.FindString(d.Contacts); m != "" {
		ci.LinkedIn = model.StringPtr("https://" + m)
	}
	return ci
}

func alignment(d model.Draft) model.GoalAlignment {
	ga := model.GoalAlignment{
		RelevanceScore:   model.RelevanceUnscored,
		FitReasons:       []string{},
		PotentialValue:   model.DefaultPotentialValue,
		ApproachPriority: model.DefaultApproachPriority,
	}
	if d.Alignment != nil {
		a := *d.Alignment
		if a.RelevanceScore != "" {
			ga.RelevanceScore = a.RelevanceScore
		}
		if len(a.FitReasons) > 0 {
			ga.FitReasons = append([]string{}, a.FitReasons...)
		}
		ga.PotentialValue = firstNonEmpty(a.PotentialValue, ga.PotentialValue)
		ga.ApproachPriority = firstNonEmpty(a.ApproachPriority, ga.ApproachPriority)
		ga.AlignmentNotes = a.AlignmentNotes
		return ga
	}
	if need := firstNonEmpty(d.Need, d.Opportunity); need != "" {
		ga.RelevanceScore = model.RelevanceMedium
		ga.FitReasons = []string{"Need identified: " + need}
	}
	return ga
}

func buyingSignals(d model.Draft) []string {
	out := nonEmpty(d.Signals)
	activity := lower.String(d.Activity)
	if containsAny(activity, "funding", "raised", "investment") {
		out = append(out, "Recent funding activity")
	}
	if containsAny(activity, "hiring", "growth") {
		out = append(out, "Growth indicators")
	}
	return out
}

func budgetIndicators(d model.Draft) []string {
	size := lower.String(d.Size)
	if containsAny(size, "funded", "series") {
		return []string{"Company size: " + size}
	}
	return []string{}
}

func decisionMakers(d model.Draft) []string {
	if containsAny(lower.String(d.Name), "ceo", "founder", "president", "director") {
		return []string{d.Name}
	}
	return []string{}
}

func initialTags(d model.Draft, goal string, p *model.Profile) []string {
	candidates := []string{}
	if goal != "" {
		candidates = append(candidates, "goal:"+Slug(goal))
	}
	if d.Type != "" {
		candidates = append(candidates, "type:"+lower.String(strings.TrimSpace(d.Type)))
	}
	if d.Industry != "" {
		candidates = append(candidates, "industry:"+Slug(d.Industry))
	}
	if d.Location != "" {
		candidates = append(candidates, "location:"+Slug(d.Location))
	}
	candidates = append(candidates, "discovered:"+p.CreatedAt.Format("2006-01"))

	tags := make([]string, 0, len(candidates))
	for _, t := range candidates {
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	out := []string{}
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// SaveDiscovered builds and saves one profile per draft. A draft that fails
// to save is logged and skipped. It returns the ids saved, in draft order.
// An empty sessionID gets a fresh one.
func (m *Manager) SaveDiscovered(ctx context.Context, drafts []model.Draft, company model.CompanyProfile, goal, sessionID string) ([]string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return ids, eris.Wrap(err, "profile: save discovered")
		}
		p := BuildFromDraft(d, company, goal, sessionID)
		if err := m.store.Save(ctx, p); err != nil {
			m.log.Warn("failed to save discovered profile",
				zap.String("name", p.Name),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			continue
		}
		ids = append(ids, p.ID)
	}
	m.log.Info("discovered profiles saved",
		zap.String("session_id", sessionID),
		zap.Int("saved", len(ids)),
		zap.Int("drafts", len(drafts)),
	)
	return ids, nil
}
