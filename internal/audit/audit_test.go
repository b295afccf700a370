package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suteetoe/taskhub/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	rows    []*model.AuditLog
	err     error
	block   chan struct{}
	sawDone bool
}

func (m *memStore) CreateAuditLog(ctx context.Context, row *model.AuditLog) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			m.mu.Lock()
			m.sawDone = true
			m.mu.Unlock()
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func strPtr(s string) *string { return &s }

func TestRecordWritesEntry(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zap.NewNop(), time.Second)

	r.Record(context.Background(), Entry{
		TenantID:   strPtr("t1"),
		UserID:     strPtr("u1"),
		Action:     ActionCreateProject,
		EntityType: EntityProject,
		EntityID:   "p1",
	}, strPtr("10.0.0.1"))
	r.Wait()

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, ActionCreateProject, row.Action)
	assert.Equal(t, "p1", row.EntityID)
	assert.Equal(t, "10.0.0.1", *row.IPAddress)
	assert.False(t, row.CreatedAt.IsZero())
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zap.NewNop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, Entry{Action: ActionLogout, EntityType: EntityUser, EntityID: "u1"}, nil)
	r.Wait()

	require.Len(t, store.rows, 1)
	assert.Nil(t, store.rows[0].IPAddress)
}

func TestRecordDoesNotBlockCaller(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	r := NewRecorder(store, zap.NewNop(), time.Minute)

	done := make(chan struct{})
	go func() {
		r.Record(context.Background(), Entry{Action: ActionLogin}, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on storage")
	}
	close(store.block)
	r.Wait()
	assert.Len(t, store.rows, 1)
}

func TestFailureIsLoggedNotPropagated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &memStore{err: errors.New("insert failed")}
	r := NewRecorder(store, zap.New(core), time.Second)

	r.Record(context.Background(), Entry{Action: ActionDeleteTask, EntityID: "t1"}, nil)
	r.Wait()

	assert.Equal(t, 1, logs.FilterMessage("Failed to write audit log").Len())
}

func TestWriteTimesOut(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	defer close(store.block)
	r := NewRecorder(store, zap.NewNop(), 20*time.Millisecond)

	r.Record(context.Background(), Entry{Action: ActionLogin}, nil)
	r.Wait()

	assert.True(t, store.sawDone)
	assert.Empty(t, store.rows)
}

func TestCloseDrainsAndRejects(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, zap.NewNop(), time.Second)

	for i := 0; i < 10; i++ {
		r.Record(context.Background(), Entry{Action: ActionLogin}, nil)
	}
	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, store.rows, 10)

	r.Record(context.Background(), Entry{Action: ActionLogin}, nil)
	r.Wait()
	assert.Len(t, store.rows, 10)
}

func TestCloseHonoursDeadline(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	defer close(store.block)
	r := NewRecorder(store, zap.NewNop(), time.Minute)
	r.Record(context.Background(), Entry{Action: ActionLogin}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)
}

func TestOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", *Origin(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", *Origin(req))

	bare := httptest.NewRequest("GET", "/", nil)
	bare.RemoteAddr = ""
	assert.Nil(t, Origin(bare))
	assert.Nil(t, Origin(nil))
}

func TestOriginContext(t *testing.T) {
	assert.Nil(t, OriginFrom(context.Background()))
	ctx := WithOrigin(context.Background(), strPtr("198.51.100.1"))
	assert.Equal(t, "198.51.100.1", *OriginFrom(ctx))
}
