package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// tracker records a run's progress on its session. Persistence failures are
// logged and never abort the run, and writes survive cancellation of the
// run's context so a cancelled run can still be marked failed.
type tracker struct {
	mu       sync.Mutex
	sessions store.SessionStore
	sess     *model.Session
	log      *zap.Logger
}

func newTracker(sessions store.SessionStore, sess *model.Session) *tracker {
	return &tracker{
		sessions: sessions,
		sess:     sess,
		log:      zap.L().With(zap.String("session_id", sess.ID)),
	}
}

func (t *tracker) advance(ctx context.Context, stage string, progress int, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sess.Status = model.SessionRunning
	t.sess.Stage = stage
	t.sess.Progress = progress
	t.saveLocked(ctx)
	t.appendLocked(ctx, "info", msg)
}

// progress moves the bar forward within a stage; it never moves backwards.
func (t *tracker) progress(ctx context.Context, progress int, level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if progress > t.sess.Progress {
		t.sess.Progress = progress
		t.saveLocked(ctx)
	}
	t.appendLocked(ctx, level, msg)
}

func (t *tracker) info(ctx context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(ctx, "info", msg)
}

func (t *tracker) warn(ctx context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(ctx, "warning", msg)
}

func (t *tracker) complete(ctx context.Context, ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.sess.Status = model.SessionCompleted
	t.sess.Stage = model.StageDone
	t.sess.Progress = progressDone
	t.sess.ProfileIDs = append([]string{}, ids...)
	t.sess.ProspectsFound = len(ids)
	t.sess.CompletedAt = &now
	t.saveLocked(ctx)
	t.appendLocked(ctx, "success", "Discovery complete")
}

func (t *tracker) fail(ctx context.Context, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.sess.Status = model.SessionError
	t.sess.Error = err.Error()
	t.sess.CompletedAt = &now
	t.saveLocked(ctx)
	t.appendLocked(ctx, "error", "Discovery failed: "+err.Error())
}

func (t *tracker) saveLocked(ctx context.Context) {
	if err := t.sessions.UpdateSession(context.WithoutCancel(ctx), t.sess); err != nil {
		t.log.Warn("discovery: update session", zap.Error(err))
	}
}

func (t *tracker) appendLocked(ctx context.Context, level, msg string) {
	a := model.Activity{Timestamp: time.Now().UTC(), Level: level, Message: msg}
	if err := t.sessions.AppendActivity(context.WithoutCancel(ctx), t.sess.ID, a); err != nil {
		t.log.Warn("discovery: append activity", zap.Error(err))
	}
}
