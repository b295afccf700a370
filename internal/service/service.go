// Package service holds the resource lifecycle: every operation loads its
// target, asks authz, checks quota on creation, mutates, and hands the audit
// entry to the recorder without waiting for it.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/apperr"
	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/authz"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/password"
	"github.com/suteetoe/taskhub/prometheus"
)

// MsgPasswordTooLong rejects passwords bcrypt cannot hash
const MsgPasswordTooLong = "Password must be at most 72 bytes"

// Auditor records audit entries
type Auditor interface {
	Record(ctx context.Context, e audit.Entry, origin *string)
}

// Default page sizes
const (
	DefaultTenantLimit  = 10
	DefaultUserLimit    = 50
	DefaultProjectLimit = 20
	DefaultTaskLimit    = 50
)

// List is one page of a listing
type List[T any] struct {
	Items []T
	Total int64
	Page  store.Page
}

// Optional is a patch field that distinguishes "absent" from "explicitly null".
// Set reports presence; a nil Value with Set means clear.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func authorize(ctx context.Context, c authz.Caller, r authz.Resource, op authz.Operation) error {
	err := authz.Authorize(c, r, op)
	if err != nil {
		prometheus.RecordAuthzDenial(string(r.Type), string(op), string(apperr.KindOf(err)))
		logger.FromCtx(ctx, nil).Debug("Authorization denied",
			zap.String("resource", string(r.Type)),
			zap.String("resource_id", r.ID),
			zap.String("operation", string(op)),
			zap.String("user_id", c.UserID),
			zap.Error(err))
	}
	return err
}

// record hands e to the auditor with the origin of the current request
func record(ctx context.Context, a Auditor, e audit.Entry) {
	a.Record(ctx, e, audit.OriginFrom(ctx))
}

// lookupErr maps a store read failure; a missing row becomes NotFound(msg)
func lookupErr(op string, err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(op, err)
}

// validID reports whether id is a well-formed entity id. Malformed ids are
// answered as not found, the same as ids that do not exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// hashPassword digests plain; an over-long password is a validation error
func hashPassword(op string, h password.Hasher, plain string) (string, error) {
	digest, err := h.Hash(plain)
	if errors.Is(err, password.ErrTooLong) {
		return "", apperr.Invalid(MsgPasswordTooLong)
	}
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	return digest, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }
