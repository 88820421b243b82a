// Package extract pulls prospect drafts and summaries out of research
// report prose. Parsing is keyword based and best effort; a report with no
// recognizable records yields an empty result, not an error.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/sells-group/prospect-cli/internal/model"
)

// fieldRule maps line keywords to a draft field. Rules are tried in order
// and the first rule with a matching keyword wins.
type fieldRule struct {
	keywords []string
	set      func(d *model.Draft, v string)
}

var fieldRules = []fieldRule{
	{[]string{"website", "site", "url"}, func(d *model.Draft, v string) { d.Website = v }},
	{[]string{"business", "company", "does", "description"}, func(d *model.Draft, v string) { d.Business = v }},
	{[]string{"need", "pain", "problem", "challenge"}, func(d *model.Draft, v string) { d.Need = v }},
	{[]string{"signals", "recent", "news", "funding"}, func(d *model.Draft, v string) { d.Signals = v }},
	{[]string{"location", "based", "headquarters", "hq"}, func(d *model.Draft, v string) { d.Location = v }},
	{[]string{"founded", "established", "started"}, func(d *model.Draft, v string) { d.Founded = v }},
	{[]string{"contacts", "contact", "email", "phone"}, func(d *model.Draft, v string) { d.Contacts = v }},
	{[]string{"relevance", "opportunity"}, func(d *model.Draft, v string) { d.Opportunity = v }},
	{[]string{"industry", "sector"}, func(d *model.Draft, v string) { d.Industry = v }},
	{[]string{"size", "employees"}, func(d *model.Draft, v string) { d.Size = v }},
	{[]string{"activity", "activities", "announcement"}, func(d *model.Draft, v string) { d.Activity = v }},
	{[]string{"type"}, func(d *model.Draft, v string) { d.Type = v }},
}

var listNumber = regexp.MustCompile(`^\d+[.)]\s*`)

// ParseReport splits a markdown report into drafts. A line wrapped in ** opens
// a new draft unless its text is all upper case (a section header); "key: value"
// lines fill fields of the open draft.
func ParseReport(report string) []model.Draft {
	var (
		drafts  []model.Draft
		current *model.Draft
	)
	flush := func() {
		if current != nil && current.Name != "" {
			drafts = append(drafts, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") {
			flush()
			name := strings.TrimSpace(strings.Trim(line, "*"))
			name = strings.TrimSpace(listNumber.ReplaceAllString(name, ""))
			if name != "" && !isUpper(name) {
				current = &model.Draft{Name: name}
			}
			continue
		}
		if current != nil && strings.Contains(line, ":") {
			applyField(current, line)
		}
	}
	flush()
	return drafts
}

func applyField(d *model.Draft, line string) {
	lowerLine := strings.ToLower(line)
	value := valueAfterColon(line)
	if value == "" {
		return
	}
	for _, r := range fieldRules {
		for _, kw := range r.keywords {
			if strings.Contains(lowerLine, kw) {
				r.set(d, value)
				return
			}
		}
	}
}

func valueAfterColon(line string) string {
	_, after, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	v := strings.TrimSpace(after)
	v = strings.TrimLeft(v, "- ")
	v = strings.TrimSpace(strings.Trim(v, "*"))
	return v
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

var fold = cases.Fold()

// Dedupe drops drafts whose case-folded, trimmed name was already seen, and
// drafts without a name. Order is preserved.
func Dedupe(drafts []model.Draft) []model.Draft {
	seen := make(map[string]struct{}, len(drafts))
	out := make([]model.Draft, 0, len(drafts))
	for _, d := range drafts {
		key := fold.String(strings.TrimSpace(d.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
