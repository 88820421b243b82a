package discovery

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// insightTitles orders and labels qualification insights in reports.
var insightTitles = []struct{ key, title string }{
	{"company_overview", "Company Overview"},
	{"opportunity", "Opportunity"},
	{"sales_signals", "Sales Signals"},
	{"contact_strategy", "Contact Strategy"},
	{"next_steps", "Next Steps"},
}

// Markdown renders a finished run as a markdown report.
func Markdown(res *Result) string {
	var b strings.Builder
	sess := res.Session

	fmt.Fprintf(&b, "# Prospect Discovery: %s\n\n", sess.CompanyName)
	fmt.Fprintf(&b, "- **Goal:** %s\n", sess.Goal)
	fmt.Fprintf(&b, "- **Session:** %s\n", sess.ID)
	fmt.Fprintf(&b, "- **Started:** %s\n", sess.StartedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "- **Prospects saved:** %d of %d requested\n\n", sess.ProspectsFound, sess.TargetCount)

	b.WriteString("## Strategy\n\n")
	fmt.Fprintf(&b, "- **Prospect type:** %s\n", res.Analysis.ProspectType)
	fmt.Fprintf(&b, "- **Target industry:** %s\n", res.Analysis.TargetIndustry)
	fmt.Fprintf(&b, "- **Search strategy:** %s\n", res.Analysis.SearchStrategy)
	fmt.Fprintf(&b, "- **Key criteria:** %s\n", res.Analysis.KeyCriteria)
	if len(res.Queries) > 0 {
		b.WriteString("\n**Queries**\n\n")
		for i, q := range res.Queries {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}

	if len(res.Prospects) == 0 {
		b.WriteString("\n## Prospects\n\nNo prospects found.\n")
		return b.String()
	}

	high := 0
	for _, p := range res.Prospects {
		if p.Alignment != nil && p.Alignment.RelevanceScore == model.RelevanceHigh {
			high++
		}
	}
	fmt.Fprintf(&b, "\n## Prospects (%d, %d high relevance)\n", len(res.Prospects), high)

	for i, p := range res.Prospects {
		fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, p.Name)
		field(&b, "Website", p.Website)
		field(&b, "Business", p.Business)
		field(&b, "Location", p.Location)
		field(&b, "Need", p.Need)
		field(&b, "Signals", p.Signals)
		field(&b, "Contacts", p.Contacts)
		if a := p.Alignment; a != nil {
			field(&b, "Relevance", string(a.RelevanceScore))
			field(&b, "Priority", a.ApproachPriority)
			field(&b, "Fit", strings.Join(a.FitReasons, "; "))
		}
		if !p.Qualified {
			b.WriteString("- _Not qualified: research unavailable_\n")
		}
		writeInsights(&b, p.Insights)
	}
	return b.String()
}

func field(b *strings.Builder, label, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fmt.Fprintf(b, "- **%s:** %s\n", label, v)
	}
}

func writeInsights(b *strings.Builder, insights map[string]string) {
	if len(insights) == 0 {
		return
	}
	b.WriteString("\n")
	seen := map[string]bool{}
	for _, it := range insightTitles {
		if v, ok := insights[it.key]; ok {
			fmt.Fprintf(b, "**%s:** %s\n\n", it.title, strings.TrimSpace(v))
			seen[it.key] = true
		}
	}
	for _, k := range slices.Sorted(maps.Keys(insights)) {
		if !seen[k] {
			fmt.Fprintf(b, "**%s:** %s\n\n", k, strings.TrimSpace(insights[k]))
		}
	}
}
