package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

var company = model.CompanyProfile{
	Name:             "Beta Co",
	Description:      "Warehouse automation software",
	Industry:         "Robotics",
	ValueProposition: "faster picking",
	Location:         "Texas",
}

func TestSetValidate(t *testing.T) {
	assert.NoError(t, Set{RoleQueryGeneration: "q", RoleReportGeneration: "r"}.Validate())
	assert.ErrorContains(t, Set{RoleQueryGeneration: "q"}.Validate(), "report_generation")
	assert.ErrorContains(t, Set{RoleReportGeneration: "r", RoleQueryGeneration: "  "}.Validate(), "query_generation")
}

func TestPromptSetsAreComplete(t *testing.T) {
	a := model.Analysis{ProspectType: "logistics firms", TargetIndustry: "3PL", KeyCriteria: "multi-site"}
	sets := map[string]Set{
		"analysis":      Analysis(company, "find clients"),
		"discovery":     Discovery(company, "find clients", a),
		"qualification": Qualification("Acme", company, "find clients"),
	}
	for name, s := range sets {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Validate())
			for _, p := range s {
				assert.NotRegexp(t, `\{[a-z_]+\}`, p, "unfilled placeholder")
			}
		})
	}

	d := sets["discovery"]
	assert.Contains(t, d.QueryGeneration(), "Find SPECIFIC LOGISTICS FIRMS")
	assert.Contains(t, d.ReportGeneration(), "## PROSPECTS FOUND: FIND CLIENTS")
	assert.Contains(t, sets["qualification"].ReportGeneration(), "PROSPECT QUALIFICATION: Acme")
	assert.Contains(t, sets["analysis"].QueryGeneration(), "- Budget range: Not provided")
}

func TestSmartQueries(t *testing.T) {
	a := model.Analysis{ProspectType: "companies", TargetIndustry: "3PL"}
	year := time.Now().Year()

	got := SmartQueries(company, "Find new clients", a, 0)
	require.Len(t, got, 8)
	assert.Equal(t, "site:crunchbase.com 3PL Texas", got[0])
	assert.Equal(t, fmt.Sprintf("3PL news %d Texas", year), got[4])
	assert.Equal(t, "3PL companies need faster picking", got[5])

	inv := SmartQueries(company, "meet investors", a, 0)
	assert.Contains(t, inv, "angel investors Texas")

	partner := SmartQueries(company, "partner search", a, 0)
	assert.Contains(t, partner, "collaboration 3PL")

	other := SmartQueries(company, "grow", a, 0)
	assert.Len(t, other, 5)
}

func TestSmartQueriesSuggestedDedupedAndCapped(t *testing.T) {
	a := model.Analysis{
		TargetIndustry:   "3PL",
		SuggestedQueries: []string{"site:crunchbase.com  3PL Texas", "3PL expansion news"},
	}
	got := SmartQueries(model.CompanyProfile{Location: "Texas"}, "grow", a, 0)
	assert.Len(t, got, 6)
	assert.Equal(t, "3PL expansion news", got[5])

	capped := SmartQueries(company, "find clients", a, 3)
	assert.Len(t, capped, 3)

	for _, q := range got {
		assert.Equal(t, strings.TrimSpace(q), q)
	}
}
