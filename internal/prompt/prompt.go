// Package prompt builds the system prompt sets handed to the research
// backend and the search queries a discovery run executes.
package prompt

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Prompt roles understood by the research backend.
const (
	RoleQueryGeneration  = "query_generation"
	RoleReportGeneration = "report_generation"
)

// Set maps a role to its system prompt.
type Set map[string]string

// Validate checks that both required roles are present.
func (s Set) Validate() error {
	for _, role := range []string{RoleQueryGeneration, RoleReportGeneration} {
		if strings.TrimSpace(s[role]) == "" {
			return eris.Errorf("prompt: missing %s prompt", role)
		}
	}
	return nil
}

// QueryGeneration returns the query generation prompt.
func (s Set) QueryGeneration() string { return s[RoleQueryGeneration] }

// ReportGeneration returns the report generation prompt.
func (s Set) ReportGeneration() string { return s[RoleReportGeneration] }

const notProvided = "Not provided"

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// render replaces {key} placeholders in tmpl.
func render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func companyVars(c model.CompanyProfile, goal string) map[string]string {
	return map[string]string{
		"company":           or(c.Name, "this company"),
		"industry":          or(c.Industry, notProvided),
		"size":              or(c.Size, notProvided),
		"stage":             or(c.Stage, notProvided),
		"what_we_do":        or(c.Description, notProvided),
		"target_customers":  or(c.TargetCustomers, notProvided),
		"value_proposition": or(c.ValueProposition, notProvided),
		"location":          or(c.Location, notProvided),
		"budget_range":      or(c.BudgetRange, notProvided),
		"goal":              goal,
		"goal_upper":        strings.ToUpper(goal),
	}
}

// Analysis is the prompt set that turns a company and goal into a discovery strategy.
func Analysis(c model.CompanyProfile, goal string) Set {
	vars := companyVars(c, goal)
	return Set{
		RoleQueryGeneration:  render(analysisQueryTmpl, vars),
		RoleReportGeneration: render(analysisReportTmpl, vars),
	}
}

// Discovery is the prompt set for finding prospects that match the analysis.
func Discovery(c model.CompanyProfile, goal string, a model.Analysis) Set {
	vars := companyVars(c, goal)
	vars["prospect_type"] = or(a.ProspectType, "companies")
	vars["prospect_type_upper"] = strings.ToUpper(vars["prospect_type"])
	vars["target_industry"] = or(a.TargetIndustry, "various")
	vars["key_criteria"] = or(a.KeyCriteria, "relevant businesses")
	vars["location"] = or(c.Location, "US")
	return Set{
		RoleQueryGeneration:  render(discoveryQueryTmpl, vars),
		RoleReportGeneration: render(discoveryReportTmpl, vars),
	}
}

// Qualification is the prompt set for researching one named prospect.
func Qualification(prospect string, c model.CompanyProfile, goal string) Set {
	vars := companyVars(c, goal)
	vars["prospect"] = prospect
	if c.Industry == "" {
		vars["industry"] = "business"
	}
	return Set{
		RoleQueryGeneration:  render(qualificationQueryTmpl, vars),
		RoleReportGeneration: render(qualificationReportTmpl, vars),
	}
}
