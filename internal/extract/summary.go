package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	insightWindow = 500
	insightMax    = 200
)

// insightSections lists insight keys and the keywords that locate them, in
// priority order.
var insightSections = []struct {
	key      string
	keywords []string
}{
	{"company_overview", []string{"company overview", "about", "description"}},
	{"opportunity", []string{"opportunity", "use case", "potential"}},
	{"sales_signals", []string{"sales signals", "signals", "recent"}},
	{"contact_strategy", []string{"contact strategy", "approach", "outreach"}},
	{"next_steps", []string{"next steps", "recommendations", "action"}},
}

// Insights extracts short excerpts from a qualification report: for each
// section, the text starting at the first keyword found, clipped to 200
// runes with a trailing "...".
func Insights(report string) map[string]string {
	out := map[string]string{}
	for _, sec := range insightSections {
		for _, kw := range sec.keywords {
			i := indexFold(report, kw)
			if i < 0 {
				continue
			}
			out[sec.key] = clip(firstRunes(report[i:], insightWindow), insightMax)
			break
		}
	}
	return out
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Analysis markers in a strategy report.
const (
	markerProspectType   = "**Prospect Type:**"
	markerTargetIndustry = "**Target Industry:**"
	markerSearchStrategy = "**Search Strategy:**"
	markerKeyCriteria    = "**Key Criteria:**"
	markerQueries        = "**Search Queries to Use:**"
)

// Fallback analysis values.
const (
	DefaultProspectType   = "companies"
	DefaultIndustry       = "business"
	DefaultSearchStrategy = "broad search"
	DefaultKeyCriteria    = "relevant businesses"
)

// FallbackAnalysis is used when no analysis report is available.
func FallbackAnalysis(company model.CompanyProfile) model.Analysis {
	industry := company.Industry
	if industry == "" {
		industry = DefaultIndustry
	}
	return model.Analysis{
		ProspectType:   DefaultProspectType,
		TargetIndustry: industry,
		SearchStrategy: DefaultSearchStrategy,
		KeyCriteria:    DefaultKeyCriteria,
	}
}

// ParseAnalysis reads the marker lines of a strategy report. Missing values
// take the fallback for company. Numbered lines after the queries marker
// become suggested queries.
func ParseAnalysis(report string, company model.CompanyProfile) model.Analysis {
	a := model.Analysis{}
	inQueries := false
	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, markerProspectType):
			a.ProspectType = strings.TrimSpace(strings.TrimPrefix(line, markerProspectType))
		case strings.HasPrefix(line, markerTargetIndustry):
			a.TargetIndustry = strings.TrimSpace(strings.TrimPrefix(line, markerTargetIndustry))
		case strings.HasPrefix(line, markerSearchStrategy):
			a.SearchStrategy = strings.TrimSpace(strings.TrimPrefix(line, markerSearchStrategy))
		case strings.HasPrefix(line, markerKeyCriteria):
			a.KeyCriteria = strings.TrimSpace(strings.TrimPrefix(line, markerKeyCriteria))
		case strings.HasPrefix(line, markerQueries):
			inQueries = true
			continue
		}
		if !inQueries {
			continue
		}
		if listNumber.MatchString(line) {
			q := strings.TrimSpace(listNumber.ReplaceAllString(line, ""))
			q = strings.Trim(q, `"`)
			if q != "" {
				a.SuggestedQueries = append(a.SuggestedQueries, q)
			}
		} else if line != "" {
			inQueries = false
		}
	}

	fb := FallbackAnalysis(company)
	if a.ProspectType == "" {
		a.ProspectType = fb.ProspectType
	}
	if a.TargetIndustry == "" {
		a.TargetIndustry = fb.TargetIndustry
	}
	if a.SearchStrategy == "" {
		a.SearchStrategy = fb.SearchStrategy
	}
	if a.KeyCriteria == "" {
		a.KeyCriteria = fb.KeyCriteria
	}
	return a
}
