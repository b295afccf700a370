// Package quota enforces the per-tenant subscription ceilings at creation time.
//
// Counts are read immediately before the insert without locking, so two
// concurrent creations can both pass the check and leave the tenant one over
// its ceiling. Nothing downstream depends on the ceiling being exact.
package quota

import (
	"context"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/model"
	"github.com/suteetoe/taskhub/prometheus"
)

const (
	MsgUserLimit    = "Subscription limit reached"
	MsgProjectLimit = "Project limit reached"
)

// Counter reports current resource counts for a tenant
type Counter interface {
	CountUsers(ctx context.Context, tenantID string) (int64, error)
	CountProjects(ctx context.Context, tenantID string) (int64, error)
}

// Checker decides whether a tenant has room for one more resource
type Checker struct {
	counter Counter
}

func NewChecker(counter Counter) *Checker {
	return &Checker{counter: counter}
}

// CheckUsers fails with Forbidden when the tenant already holds MaxUsers users
func (q *Checker) CheckUsers(ctx context.Context, t *model.Tenant) error {
	n, err := q.counter.CountUsers(ctx, t.ID)
	if err != nil {
		return apperr.Internal("quota.CheckUsers", err)
	}
	if n >= int64(t.MaxUsers) {
		prometheus.RecordQuotaRejection("user")
		return apperr.Forbidden(MsgUserLimit)
	}
	return nil
}

// CheckProjects fails with Forbidden when the tenant already holds MaxProjects projects
func (q *Checker) CheckProjects(ctx context.Context, t *model.Tenant) error {
	n, err := q.counter.CountProjects(ctx, t.ID)
	if err != nil {
		return apperr.Internal("quota.CheckProjects", err)
	}
	if n >= int64(t.MaxProjects) {
		prometheus.RecordQuotaRejection("project")
		return apperr.Forbidden(MsgProjectLimit)
	}
	return nil
}
