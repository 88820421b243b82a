// Package profile is the facade over the profile store: lookups, lifecycle
// mutators, discovery ingestion, statistics and export.
package profile

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// ErrProfileNotFound is returned by mutators when the profile does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// Manager wraps a ProfileStore with the operations exposed to the CLI, the
// API and discovery.
type Manager struct {
	store     *store.ProfileStore
	backupDir string
	log       *zap.Logger
}

// NewManager returns a Manager over st. Backups land in backupDir.
func NewManager(st *store.ProfileStore, backupDir string) *Manager {
	return &Manager{
		store:     st,
		backupDir: backupDir,
		log:       zap.L().With(zap.String("component", "profile_manager")),
	}
}

// Store exposes the underlying store.
func (m *Manager) Store() *store.ProfileStore { return m.store }

// Get loads one profile. A missing profile yields nil, nil.
func (m *Manager) Get(ctx context.Context, id string) (*model.Profile, error) {
	return m.store.Load(ctx, id)
}

// Search returns the profiles matching f, newest first. Ids whose document
// is missing or unreadable are skipped.
func (m *Manager) Search(ctx context.Context, f model.Filter) ([]*model.Profile, error) {
	ids, err := m.store.Search(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "profile: search")
	}
	out := make([]*model.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := m.store.Load(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.log.Warn("skipping unreadable profile", zap.String("profile_id", id), zap.Error(err))
			continue
		}
		if p == nil {
			m.log.Warn("indexed profile has no document", zap.String("profile_id", id))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SearchSummaries is Search without loading documents.
func (m *Manager) SearchSummaries(ctx context.Context, f model.Filter) ([]model.Summary, error) {
	ids, err := m.store.Search(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "profile: search")
	}
	out := make([]model.Summary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := m.store.Summary(id); ok {
			out = append(out, sum)
		}
	}
	return out, nil
}

// List returns a page of summaries ordered by updated_at descending.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]model.Summary, error) {
	return m.store.List(ctx, limit, offset)
}

// Count returns the number of indexed profiles.
func (m *Manager) Count() int { return m.store.Count() }

// Delete removes a profile, reporting whether it existed.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	return m.store.Delete(ctx, id)
}

// Backup snapshots the store into the configured backup directory.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	return m.store.Backup(ctx, m.backupDir)
}

// Restore loads a backup archive, returning the number of profiles restored.
func (m *Manager) Restore(ctx context.Context, path string) (int, error) {
	return m.store.Restore(ctx, path)
}

// Verify reports index/document drift.
func (m *Manager) Verify(ctx context.Context) (*store.Consistency, error) {
	return m.store.Verify(ctx)
}

// Reindex rebuilds the index from documents.
func (m *Manager) Reindex(ctx context.Context) (int, error) {
	return m.store.Reindex(ctx)
}

// NewProfile is the input for a manually created profile.
type NewProfile struct {
	Name    string             `json:"name" validate:"required"`
	Type    model.ProspectType `json:"prospect_type"`
	Company string             `json:"discovering_company"`
	Goal    string             `json:"company_goal"`
	Status  model.Status       `json:"status"`
	Tags    []string           `json:"tags"`
	Details Details            `json:"details"`
}

// Create builds and saves a profile from in. An empty type becomes "other"
// and an empty status "discovered".
func (m *Manager) Create(ctx context.Context, in NewProfile) (*model.Profile, error) {
	if in.Name == "" {
		return nil, eris.New("profile: name is required")
	}
	pt := in.Type
	if pt == "" {
		pt = model.ProspectTypeOther
	}
	if _, err := model.ParseProspectType(string(pt)); err != nil {
		return nil, err
	}
	p := model.New(in.Name, pt)
	if in.Status != "" {
		if _, err := model.ParseStatus(string(in.Status)); err != nil {
			return nil, err
		}
		p.Status = in.Status
	}
	p.DiscoveryMetadata.DiscoveringCompany = in.Company
	p.DiscoveryMetadata.CompanyGoal = in.Goal
	in.Details.apply(p)
	for _, t := range in.Tags {
		if t != "" && !p.HasTag(t) {
			p.Tags = append(p.Tags, t)
		}
	}
	if err := m.store.Save(ctx, p); err != nil {
		return nil, eris.Wrap(err, "profile: create")
	}
	m.log.Info("profile created", zap.String("profile_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Details carries optional field updates. Nil fields are left alone.
type Details struct {
	Name                   *string             `json:"name,omitempty"`
	ProspectType           *model.ProspectType `json:"prospect_type,omitempty"`
	BusinessDescription    *string             `json:"business_description,omitempty"`
	Industry               *string             `json:"industry,omitempty"`
	Location               *string             `json:"location,omitempty"`
	CompanySize            *string             `json:"company_size,omitempty"`
	CompanyStage           *string             `json:"company_stage,omitempty"`
	Email                  *string             `json:"email,omitempty" validate:"omitempty,email"`
	Phone                  *string             `json:"phone,omitempty"`
	LinkedIn               *string             `json:"linkedin,omitempty"`
	Website                *string             `json:"website,omitempty"`
	Twitter                *string             `json:"twitter,omitempty"`
	OpportunityDescription *string             `json:"opportunity_description,omitempty"`
	EstimatedValue         *string             `json:"estimated_value,omitempty"`
	TimelineIndicators     *string             `json:"timeline_indicators,omitempty"`
	CompetitorAnalysis     *string             `json:"competitor_analysis,omitempty"`
	RelevanceScore         *model.Relevance    `json:"relevance_score,omitempty"`
	PotentialValue         *string             `json:"potential_value,omitempty"`
	ApproachPriority       *string             `json:"approach_priority,omitempty"`
	AlignmentNotes         *string             `json:"alignment_notes,omitempty"`
}

func setString(dst *string, v *string) bool {
	if v == nil || *dst == *v {
		return false
	}
	*dst = *v
	return true
}

func setContact(dst **string, v *string) bool {
	if v == nil || model.Deref(*dst) == *v {
		return false
	}
	*dst = model.StringPtr(*v)
	return true
}

// apply copies the set fields onto p and reports whether anything changed.
func (d Details) apply(p *model.Profile) bool {
	changed := false
	for _, c := range []bool{
		setString(&p.Name, d.Name),
		setString(&p.BusinessDescription, d.BusinessDescription),
		setString(&p.Industry, d.Industry),
		setString(&p.Location, d.Location),
		setString(&p.CompanySize, d.CompanySize),
		setString(&p.CompanyStage, d.CompanyStage),
		setContact(&p.ContactInfo.Email, d.Email),
		setContact(&p.ContactInfo.Phone, d.Phone),
		setContact(&p.ContactInfo.LinkedIn, d.LinkedIn),
		setContact(&p.ContactInfo.Website, d.Website),
		setContact(&p.ContactInfo.Twitter, d.Twitter),
		setString(&p.OpportunityDescription, d.OpportunityDescription),
		setString(&p.EstimatedValue, d.EstimatedValue),
		setString(&p.TimelineIndicators, d.TimelineIndicators),
		setString(&p.CompetitorAnalysis, d.CompetitorAnalysis),
		setString(&p.GoalAlignment.PotentialValue, d.PotentialValue),
		setString(&p.GoalAlignment.ApproachPriority, d.ApproachPriority),
		setString(&p.GoalAlignment.AlignmentNotes, d.AlignmentNotes),
	} {
		changed = changed || c
	}
	if d.ProspectType != nil && p.ProspectType != *d.ProspectType {
		p.ProspectType = *d.ProspectType
		changed = true
	}
	if d.RelevanceScore != nil && p.GoalAlignment.RelevanceScore != *d.RelevanceScore {
		p.GoalAlignment.RelevanceScore = *d.RelevanceScore
		changed = true
	}
	return changed
}

// mutate runs fn through the store's read-modify-write.
func (m *Manager) mutate(ctx context.Context, id, op string, fn func(p *model.Profile) (bool, error)) (*model.Profile, error) {
	p, err := m.store.Update(ctx, id, fn)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: %s %s", op, id)
	}
	if p == nil {
		return nil, eris.Wrapf(ErrProfileNotFound, "profile: %s %s", op, id)
	}
	return p, nil
}

// UpdateDetails applies d to the profile. Unchanged profiles keep their version.
func (m *Manager) UpdateDetails(ctx context.Context, id string, d Details) (*model.Profile, error) {
	if d.ProspectType != nil {
		if _, err := model.ParseProspectType(string(*d.ProspectType)); err != nil {
			return nil, err
		}
	}
	if d.RelevanceScore != nil {
		if _, err := model.ParseRelevance(string(*d.RelevanceScore)); err != nil {
			return nil, err
		}
	}
	return m.mutate(ctx, id, "update details", func(p *model.Profile) (bool, error) {
		if !d.apply(p) {
			return false, nil
		}
		p.Touch()
		return true, nil
	})
}

// AddInteraction records a touchpoint.
func (m *Manager) AddInteraction(ctx context.Context, id, interactionType, content, outcome string) (*model.Profile, error) {
	return m.mutate(ctx, id, "add interaction", func(p *model.Profile) (bool, error) {
		p.AddInteraction(interactionType, content, outcome)
		return true, nil
	})
}

// AddNote appends a note. An empty category becomes "general".
func (m *Manager) AddNote(ctx context.Context, id, content, category string) (*model.Profile, error) {
	return m.mutate(ctx, id, "add note", func(p *model.Profile) (bool, error) {
		p.AddNote(content, category)
		return true, nil
	})
}

// UpdateStatus moves the profile to status and re-buckets it in the index.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Profile, error) {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	p, err := m.mutate(ctx, id, "update status", func(p *model.Profile) (bool, error) {
		p.UpdateStatus(status)
		return true, nil
	})
	if err == nil {
		m.log.Info("profile status updated", zap.String("profile_id", id), zap.String("status", string(status)))
	}
	return p, err
}

// AddTag adds tag when absent. An existing tag is a successful no-op.
func (m *Manager) AddTag(ctx context.Context, id, tag string) (*model.Profile, error) {
	if tag == "" {
		return nil, eris.New("profile: tag is required")
	}
	return m.mutate(ctx, id, "add tag", func(p *model.Profile) (bool, error) {
		return p.AddTag(tag), nil
	})
}

// SetExternalRef stores an external system id on the profile.
func (m *Manager) SetExternalRef(ctx context.Context, id, key, value string) (*model.Profile, error) {
	return m.mutate(ctx, id, "set external ref", func(p *model.Profile) (bool, error) {
		return p.SetExternalRef(key, value), nil
	})
}
