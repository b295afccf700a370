// Package audit records state-changing actions without making the caller wait.
//
// Record returns immediately. The write runs on its own goroutine with a
// context that outlives the request and carries its own timeout; a failed
// write is logged and counted but never reaches the caller. Close drains the
// writes still in flight.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/prometheus"
)

// Actions
const (
	ActionRegisterTenant   = "REGISTER_TENANT"
	ActionLogin            = "LOGIN"
	ActionLogout           = "LOGOUT"
	ActionUpdateTenant     = "UPDATE_TENANT"
	ActionCreateUser       = "CREATE_USER"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeleteUser       = "DELETE_USER"
	ActionCreateProject    = "CREATE_PROJECT"
	ActionUpdateProject    = "UPDATE_PROJECT"
	ActionDeleteProject    = "DELETE_PROJECT"
	ActionCreateTask       = "CREATE_TASK"
	ActionUpdateTask       = "UPDATE_TASK"
	ActionUpdateTaskStatus = "UPDATE_TASK_STATUS"
	ActionDeleteTask       = "DELETE_TASK"
)

// Entity types
const (
	EntityTenant  = "tenant"
	EntityUser    = "user"
	EntityProject = "project"
	EntityTask    = "task"
)

const DefaultTimeout = 5 * time.Second

// Store persists audit entries
type Store interface {
	CreateAuditLog(ctx context.Context, entry *model.AuditLog) error
}

// Entry describes one action
type Entry struct {
	TenantID   *string
	UserID     *string
	Action     string
	EntityType string
	EntityID   string
}

// Recorder writes entries in the background
type Recorder struct {
	store   Store
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder returns a Recorder. A non-positive timeout uses DefaultTimeout.
func NewRecorder(store Store, log *zap.Logger, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log, timeout: timeout, now: time.Now}
}

// Record schedules the write of e. It never blocks on storage and never fails.
func (r *Recorder) Record(ctx context.Context, e Entry, origin *string) {
	log := logger.FromCtx(ctx, r.log)
	row := &model.AuditLog{
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  origin,
		CreatedAt:  r.now(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Warn("audit recorder closed, dropping entry", zap.String("action", e.Action), zap.String("entity_id", e.EntityID))
		prometheus.RecordAuditFailure()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	prometheus.AuditInFlightGauge.Inc()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		defer prometheus.AuditInFlightGauge.Dec()

		wctx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := r.store.CreateAuditLog(wctx, row); err != nil {
			prometheus.RecordAuditFailure()
			log.Error("Failed to write audit log",
				zap.String("action", row.Action),
				zap.String("entity_type", row.EntityType),
				zap.String("entity_id", row.EntityID),
				zap.Error(err))
			return
		}
		prometheus.RecordAuditWrite(row.Action)
	}()
}

// Wait blocks until every scheduled write has finished
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Close stops accepting entries and waits for the pending ones, or for ctx to end
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
