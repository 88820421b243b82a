package store

import (
	"context"
	"slices"

	"github.com/sells-group/prospect-cli/internal/model"
)

// MaxActivity is the number of activity entries returned with a session.
const MaxActivity = 50

// SessionFilter specifies criteria for listing discovery sessions.
type SessionFilter struct {
	Status model.SessionStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// SessionStore persists discovery session progress and activity logs.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	AppendActivity(ctx context.Context, sessionID string, a model.Activity) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(filter SessionFilter) int {
	if filter.Limit <= 0 {
		return 100
	}
	return filter.Limit
}

// chronological flips a newest-first activity page into display order.
func chronological(entries []model.Activity) []model.Activity {
	slices.Reverse(entries)
	return entries
}
