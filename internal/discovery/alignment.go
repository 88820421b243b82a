package discovery

import (
	"regexp"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

var likelihoodRe = regexp.MustCompile(`(?i)likelihood of success\W*(high|medium|low)\b`)

// alignmentRules are checked in order; the first match scores High.
var alignmentRules = []struct {
	goal   string
	signal []string
	reason string
}{
	{"investor", []string{"fund", "invest"}, "Investment focus detected"},
	{"client", []string{"need", "problem"}, "Clear need identified"},
	{"partner", []string{"partner", "collaboration"}, "Partnership potential"},
}

// AssessAlignment scores a prospect against the goal from its business,
// need and signal text. Prospects default to Medium. When a qualification
// report states a likelihood of success it sets the approach priority.
func AssessAlignment(d model.Draft, goal, report string) model.GoalAlignment {
	ga := model.GoalAlignment{
		RelevanceScore:   model.RelevanceMedium,
		FitReasons:       []string{},
		PotentialValue:   model.DefaultPotentialValue,
		ApproachPriority: model.DefaultApproachPriority,
	}

	g := strings.ToLower(goal)
	text := strings.ToLower(strings.Join([]string{d.Business, d.Need, d.Signals}, " "))
	for _, r := range alignmentRules {
		if !strings.Contains(g, r.goal) {
			continue
		}
		for _, s := range r.signal {
			if strings.Contains(text, s) {
				ga.RelevanceScore = model.RelevanceHigh
				ga.FitReasons = []string{r.reason}
				break
			}
		}
		if ga.RelevanceScore == model.RelevanceHigh {
			break
		}
	}

	if l := Likelihood(report); l != "" {
		ga.ApproachPriority = l
		ga.AlignmentNotes = "Likelihood of success: " + l
	}
	return ga
}

// Likelihood returns "High", "Medium" or "Low" as stated in a qualification
// report, or "" when the report does not say.
func Likelihood(report string) string {
	m := likelihoodRe.FindStringSubmatch(report)
	if m == nil {
		return ""
	}
	l := strings.ToLower(m[1])
	return strings.ToUpper(l[:1]) + l[1:]
}
