package model

import "time"

// Summary is the denormalized slice of a profile kept in the index so that
// listings and filters never need to read documents.
type Summary struct {
	ID                 string       `json:"-"`
	Name               string       `json:"name"`
	ProspectType       ProspectType `json:"prospect_type"`
	Status             Status       `json:"status"`
	RelevanceScore     Relevance    `json:"relevance_score"`
	CompanyGoal        string       `json:"company_goal"`
	DiscoveringCompany string       `json:"discovering_company"`
	Industry           string       `json:"industry,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Tags               []string     `json:"tags"`
}

// SummaryOf projects p onto its index summary.
func SummaryOf(p *Profile) Summary {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return Summary{
		ID:                 p.ID,
		Name:               p.Name,
		ProspectType:       p.ProspectType,
		Status:             p.Status,
		RelevanceScore:     p.GoalAlignment.RelevanceScore,
		CompanyGoal:        p.DiscoveryMetadata.CompanyGoal,
		DiscoveringCompany: p.DiscoveryMetadata.DiscoveringCompany,
		Industry:           p.Industry,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
		Tags:               tags,
	}
}

// Filter selects profiles by index bucket. Empty fields do not constrain.
// Exact-match fields intersect; Tags match profiles carrying any of the
// listed tags; Name is a case-insensitive substring match.
type Filter struct {
	Company   string    `json:"company,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Status    Status    `json:"status,omitempty"`
	Relevance Relevance `json:"relevance,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// IsEmpty reports whether the filter has no criteria.
func (f Filter) IsEmpty() bool {
	return f.Company == "" && f.Goal == "" && f.Status == "" &&
		f.Relevance == "" && len(f.Tags) == 0 && f.Name == ""
}
