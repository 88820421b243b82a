package prompt

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SmartQueries returns the search queries for a discovery run: five base
// queries built from the analysis, three goal-specific ones, then any
// queries the analysis suggested. Duplicates are dropped and the result is
// capped at limit when limit > 0.
func SmartQueries(c model.CompanyProfile, goal string, a model.Analysis, limit int) []string {
	prospectType := or(a.ProspectType, "companies")
	industry := or(a.TargetIndustry, "business")
	location := or(c.Location, "US")
	year := time.Now().Year()

	queries := []string{
		fmt.Sprintf("site:crunchbase.com %s %s", industry, location),
		fmt.Sprintf("site:linkedin.com/company %s %s", industry, location),
		fmt.Sprintf("%s %s %s", industry, prospectType, location),
		fmt.Sprintf("recent funding %s %s", industry, location),
		fmt.Sprintf("%s news %d %s", industry, year, location),
	}

	g := strings.ToLower(goal)
	switch {
	case strings.Contains(g, "investor"):
		queries = append(queries,
			fmt.Sprintf("site:crunchbase.com investors %s", industry),
			fmt.Sprintf("venture capital %s", industry),
			fmt.Sprintf("angel investors %s", location),
		)
	case strings.Contains(g, "client"), strings.Contains(g, "customer"):
		queries = append(queries,
			fmt.Sprintf("%s companies need %s", industry, or(c.ValueProposition, "services")),
			fmt.Sprintf("site:linkedin.com/company %s hiring", industry),
			fmt.Sprintf("%s challenges problems", industry),
		)
	case strings.Contains(g, "partner"):
		queries = append(queries,
			fmt.Sprintf("%s partnerships %s", industry, location),
			fmt.Sprintf("strategic partnerships %s", industry),
			fmt.Sprintf("collaboration %s", industry),
		)
	}
	queries = append(queries, a.SuggestedQueries...)

	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || slices.Contains(out, q) {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
