package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

var testCompany = model.CompanyProfile{
	Name:        "Beta Co",
	Description: "Warehouse automation software",
	Industry:    "Logistics",
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		draft model.Draft
		goal  string
		want  model.ProspectType
	}{
		{"declared company", model.Draft{Type: "Private Company"}, "find investors", model.ProspectTypeCompany},
		{"declared individual", model.Draft{Type: "individual"}, "", model.ProspectTypeIndividual},
		{"declared entrepreneur", model.Draft{Type: "Serial Entrepreneur"}, "", model.ProspectTypeEntrepreneur},
		{"goal investor", model.Draft{}, "Raise seed funding", model.ProspectTypeInvestor},
		{"goal partner", model.Draft{}, "find collaboration partners", model.ProspectTypePartner},
		{"goal client", model.Draft{}, "find customers", model.ProspectTypeClient},
		{"business founder", model.Draft{Business: "Founder of a studio"}, "grow", model.ProspectTypeIndividual},
		{"business corporation", model.Draft{Business: "A holding corporation"}, "grow", model.ProspectTypeCompany},
		{"fallback", model.Draft{Business: "bakery"}, "grow", model.ProspectTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.draft, tt.goal))
		})
	}
}

func TestBuildFromDraft(t *testing.T) {
	d := model.Draft{
		Name:          "Dana Lee, CEO",
		Type:          "Company",
		Website:       "https://acme.example",
		Business:      "Robotics integrator",
		Need:          "Faster pick rates",
		Challenge:     "Labor shortage",
		Signals:       "New DC opening",
		Activity:      "Raised a Series B and hiring engineers",
		Location:      "Austin TX",
		Contacts:      "dana@acme.example, linkedin.com/in/danalee",
		Phone:         "+1 512 555 0100",
		Industry:      "Industrial Automation",
		Size:          "Series B funded, 120 staff",
		SourceQuery:   "robotics integrators texas",
		SearchContext: "web",
	}
	p := BuildFromDraft(d, testCompany, "Find Clients", "sess-1")

	require.NoError(t, p.Validate())
	assert.Equal(t, "Dana Lee, CEO", p.Name)
	assert.Equal(t, model.ProspectTypeCompany, p.ProspectType)
	assert.Equal(t, "Robotics integrator", p.BusinessDescription)
	assert.Equal(t, "dana@acme.example", model.Deref(p.ContactInfo.Email))
	assert.Equal(t, "https://linkedin.com/in/danalee", model.Deref(p.ContactInfo.LinkedIn))
	assert.Equal(t, "https://acme.example", model.Deref(p.ContactInfo.Website))
	assert.Equal(t, "+1 512 555 0100", model.Deref(p.ContactInfo.Phone))
	assert.Nil(t, p.ContactInfo.Twitter)

	assert.Equal(t, model.RelevanceMedium, p.GoalAlignment.RelevanceScore)
	assert.Equal(t, []string{"Need identified: Faster pick rates"}, p.GoalAlignment.FitReasons)

	assert.Equal(t, []string{d.Activity, d.Signals}, p.RecentActivities)
	assert.Equal(t, []string{d.Need, d.Challenge}, p.PainPoints)
	assert.Equal(t, []string{"New DC opening", "Recent funding activity", "Growth indicators"}, p.BuyingSignals)
	assert.Equal(t, []string{"Company size: series b funded, 120 staff"}, p.BudgetIndicators)
	assert.Equal(t, []string{"Dana Lee, CEO"}, p.DecisionMakers)
	assert.Equal(t, "Faster pick rates", p.OpportunityDescription)

	assert.Equal(t, "Beta Co", p.DiscoveryMetadata.DiscoveringCompany)
	assert.Equal(t, "Find Clients", p.DiscoveryMetadata.CompanyGoal)
	assert.Equal(t, "sess-1", p.DiscoveryMetadata.SessionID)
	assert.Equal(t, "robotics integrators texas", p.DiscoveryMetadata.SourceQuery)

	assert.Equal(t, []string{
		"goal:find_clients",
		"type:company",
		"industry:industrial_automation",
		"location:austin_tx",
		"discovered:" + p.CreatedAt.Format("2006-01"),
	}, p.Tags)
	assert.Equal(t, model.StatusDiscovered, p.Status)
	assert.Equal(t, 1, p.Version)
}

func TestBuildFromDraftSparse(t *testing.T) {
	p := BuildFromDraft(model.Draft{Industry: "Retail"}, testCompany, "", "")

	assert.Equal(t, UnknownName, p.Name)
	assert.Equal(t, "Retail", p.BusinessDescription)
	assert.Equal(t, model.RelevanceUnscored, p.GoalAlignment.RelevanceScore)
	assert.Empty(t, p.GoalAlignment.FitReasons)
	assert.Empty(t, p.BuyingSignals)
	assert.Empty(t, p.BudgetIndicators)
	assert.Empty(t, p.DecisionMakers)
	assert.Equal(t, []string{"industry:retail", "discovered:" + p.CreatedAt.Format("2006-01")}, p.Tags)
	require.NoError(t, p.Validate())
}

func TestBuildFromDraftUsesAssessedAlignment(t *testing.T) {
	d := model.Draft{
		Name:      "Acme",
		Need:      "ignored when assessed",
		Qualified: true,
		Insights:  map[string]string{"opportunity": "Pilot in Q3", "company_overview": "Mid-size integrator", "next_steps": ""},
		Alignment: &model.GoalAlignment{
			RelevanceScore: model.RelevanceHigh,
			FitReasons:     []string{"Active buyer"},
			AlignmentNotes: "Strong fit",
		},
	}
	p := BuildFromDraft(d, testCompany, "find clients", "s")

	assert.Equal(t, model.RelevanceHigh, p.GoalAlignment.RelevanceScore)
	assert.Equal(t, []string{"Active buyer"}, p.GoalAlignment.FitReasons)
	assert.Equal(t, model.DefaultPotentialValue, p.GoalAlignment.PotentialValue)
	assert.Equal(t, model.DefaultApproachPriority, p.GoalAlignment.ApproachPriority)
	assert.Equal(t, "Strong fit", p.GoalAlignment.AlignmentNotes)
	assert.Equal(t, model.StatusQualified, p.Status)

	require.Len(t, p.Notes, 2)
	assert.Equal(t, "company_overview: Mid-size integrator", p.Notes[0].Content)
	assert.Equal(t, "opportunity: Pilot in Q3", p.Notes[1].Content)
	assert.Equal(t, InsightCategory, p.Notes[0].Category)
	assert.Equal(t, 1, p.Version)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "find_new_clients", Slug("  Find New Clients "))
	assert.Equal(t, "são_paulo", Slug("São Paulo"))
}

func TestSaveDiscovered(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	drafts := []model.Draft{
		{Name: "Acme", Need: "automation"},
		{Name: "Globex", Industry: "Energy"},
	}
	ids, err := m.SaveDiscovered(ctx, drafts, testCompany, "find clients", "sess-9")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 2, m.Count())

	byGoal, err := m.Store().Search(ctx, model.Filter{Goal: "find clients", Company: "Beta Co"})
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, byGoal)

	p, err := m.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "sess-9", p.DiscoveryMetadata.SessionID)
	assert.Equal(t, model.ProspectTypeClient, p.ProspectType)
}

func TestSaveDiscoveredCancelled(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids, err := m.SaveDiscovered(ctx, []model.Draft{{Name: "Acme"}}, testCompany, "grow", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ids)
	assert.Zero(t, m.Count())
}
