package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Defaults applied to new profiles.
const (
	DefaultPotentialValue   = "To be determined"
	DefaultApproachPriority = "Medium"
	DefaultNoteCategory     = "general"
	SystemUser              = "system"
)

// ContactInfo holds the known ways to reach a prospect.
type ContactInfo struct {
	Email    *string           `json:"email"`
	Phone    *string           `json:"phone"`
	LinkedIn *string           `json:"linkedin"`
	Website  *string           `json:"website"`
	Twitter  *string           `json:"twitter"`
	Other    map[string]string `json:"other"`
}

// GoalAlignment records how well a prospect fits the discovering company's goal.
type GoalAlignment struct {
	RelevanceScore   Relevance `json:"relevance_score"`
	FitReasons       []string  `json:"fit_reasons"`
	PotentialValue   string    `json:"potential_value"`
	ApproachPriority string    `json:"approach_priority"`
	AlignmentNotes   string    `json:"alignment_notes"`
}

// DiscoveryMetadata describes the run that found a prospect. Set once at creation.
type DiscoveryMetadata struct {
	DiscoveryDate      time.Time `json:"discovery_date"`
	SourceQuery        string    `json:"source_query"`
	SearchContext      string    `json:"search_context"`
	CompanyGoal        string    `json:"company_goal"`
	DiscoveringCompany string    `json:"discovering_company"`
	SessionID          string    `json:"discovery_session_id"`
}

// Interaction is one recorded touchpoint with a prospect.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Outcome   string    `json:"outcome"`
	User      string    `json:"user"`
}

// Note is a free-form annotation on a prospect.
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	User      string    `json:"user"`
}

// Profile is the persisted record of one prospect. The JSON field names are
// the on-disk document format.
type Profile struct {
	ID                  string       `json:"profile_id"`
	Name                string       `json:"name"`
	ProspectType        ProspectType `json:"prospect_type"`
	BusinessDescription string       `json:"business_description"`
	Industry            string       `json:"industry"`
	Location            string       `json:"location"`
	CompanySize         string       `json:"company_size"`
	CompanyStage        string       `json:"company_stage"`

	ContactInfo       ContactInfo       `json:"contact_info"`
	GoalAlignment     GoalAlignment     `json:"goal_alignment"`
	DiscoveryMetadata DiscoveryMetadata `json:"discovery_metadata"`

	RecentActivities []string `json:"recent_activities"`
	PainPoints       []string `json:"pain_points"`
	BuyingSignals    []string `json:"buying_signals"`
	BudgetIndicators []string `json:"budget_indicators"`
	DecisionMakers   []string `json:"decision_makers"`

	Status       Status        `json:"status"`
	Interactions []Interaction `json:"interactions"`
	Notes        []Note        `json:"notes"`
	Tags         []string      `json:"tags"`

	OpportunityDescription string `json:"opportunity_description"`
	EstimatedValue         string `json:"estimated_value"`
	TimelineIndicators     string `json:"timeline_indicators"`
	CompetitorAnalysis     string `json:"competitor_analysis"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// now is swapped in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// New returns a profile with a fresh id, default alignment and status, and version 1.
func New(name string, prospectType ProspectType) *Profile {
	ts := now()
	return &Profile{
		ID:           uuid.NewString(),
		Name:         name,
		ProspectType: prospectType,
		ContactInfo:  ContactInfo{Other: map[string]string{}},
		GoalAlignment: GoalAlignment{
			RelevanceScore:   RelevanceUnscored,
			FitReasons:       []string{},
			PotentialValue:   DefaultPotentialValue,
			ApproachPriority: DefaultApproachPriority,
		},
		DiscoveryMetadata: DiscoveryMetadata{DiscoveryDate: ts},
		RecentActivities:  []string{},
		PainPoints:        []string{},
		BuyingSignals:     []string{},
		BudgetIndicators:  []string{},
		DecisionMakers:    []string{},
		Status:            StatusDiscovered,
		Interactions:      []Interaction{},
		Notes:             []Note{},
		Tags:              []string{},
		CreatedAt:         ts,
		UpdatedAt:         ts,
		Version:           1,
	}
}

// Touch records a modification: version +1 and a fresh updated_at.
func (p *Profile) Touch() {
	ts := now()
	if ts.Before(p.CreatedAt) {
		ts = p.CreatedAt
	}
	p.UpdatedAt = ts
	p.Version++
}

// AddInteraction appends an interaction attributed to the system user.
func (p *Profile) AddInteraction(interactionType, content, outcome string) {
	p.Interactions = append(p.Interactions, Interaction{
		Timestamp: now(),
		Type:      interactionType,
		Content:   content,
		Outcome:   outcome,
		User:      SystemUser,
	})
	p.Touch()
}

// AddNote appends a note. An empty category becomes "general".
func (p *Profile) AddNote(content, category string) {
	if category == "" {
		category = DefaultNoteCategory
	}
	p.Notes = append(p.Notes, Note{
		Timestamp: now(),
		Category:  category,
		Content:   content,
		User:      SystemUser,
	})
	p.Touch()
}

// UpdateStatus moves the profile to status. Any transition is allowed.
func (p *Profile) UpdateStatus(status Status) {
	p.Status = status
	p.Touch()
}

// AddTag adds tag if absent. It reports whether the profile changed; an
// existing tag leaves the version untouched.
func (p *Profile) AddTag(tag string) bool {
	if tag == "" || p.HasTag(tag) {
		return false
	}
	p.Tags = append(p.Tags, tag)
	p.Touch()
	return true
}

// HasTag reports whether tag is present.
func (p *Profile) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// SetExternalRef stores an external system id under contact_info.other.
// It reports whether the value changed.
func (p *Profile) SetExternalRef(key, value string) bool {
	if p.ContactInfo.Other == nil {
		p.ContactInfo.Other = map[string]string{}
	}
	if p.ContactInfo.Other[key] == value {
		return false
	}
	p.ContactInfo.Other[key] = value
	p.Touch()
	return true
}

// ExternalRef returns the external id stored under key, if any.
func (p *Profile) ExternalRef(key string) string {
	return p.ContactInfo.Other[key]
}

// Validate checks the invariants a profile must hold before it is persisted.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return eris.New("model: profile id is required")
	}
	if _, err := ParseProspectType(string(p.ProspectType)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	if _, err := ParseRelevance(string(p.GoalAlignment.RelevanceScore)); err != nil {
		return err
	}
	if p.Version < 1 {
		return eris.Errorf("model: profile %s has invalid version %d", p.ID, p.Version)
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		return eris.Errorf("model: profile %s updated_at precedes created_at", p.ID)
	}
	seen := make(map[string]struct{}, len(p.Tags))
	for _, t := range p.Tags {
		if _, dup := seen[t]; dup {
			return eris.Errorf("model: profile %s has duplicate tag %q", p.ID, t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy via the document encoding.
func (p *Profile) Clone() (*Profile, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "model: clone profile")
	}
	var out Profile
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, eris.Wrap(err, "model: clone profile")
	}
	return &out, nil
}

// Describe renders a one-line description for listings and logs.
func (p *Profile) Describe() string {
	return p.Name + " (" + string(p.ProspectType) + ") - " +
		string(p.GoalAlignment.RelevanceScore) + " relevance - " + string(p.Status)
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
