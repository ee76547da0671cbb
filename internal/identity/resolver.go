package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/repository"
)

// ErrUnknownIdentity is returned when an external key matches no account
var ErrUnknownIdentity = errors.New("unknown identity")

// Cache stores resolved callers by user id
type Cache interface {
	Get(ctx context.Context, userID string) (Caller, bool, error)
	Set(ctx context.Context, userID string, c Caller) error
	Delete(ctx context.Context, userID string) error
}

// Resolver maps authenticated users and external keys to Callers
type Resolver struct {
	users repository.UserStore
	cache Cache
	log   *zap.Logger
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(users repository.UserStore, cache Cache, log *zap.Logger) *Resolver {
	return &Resolver{users: users, cache: cache, log: log}
}

// ByUserID resolves the account behind a validated token. Missing and
// deactivated accounts are unauthenticated.
func (r *Resolver) ByUserID(ctx context.Context, userID string) (Caller, error) {
	if r.cache != nil {
		c, ok, err := r.cache.Get(ctx, userID)
		if err != nil {
			r.log.Warn("identity cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return c, nil
		}
	}

	user, err := r.users.UserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Caller{}, apperr.Unauthenticated("account not found")
	}
	if err != nil {
		return Caller{}, apperr.Internal(err, "failed to load account")
	}
	if !user.IsActive {
		return Caller{}, apperr.Unauthenticated("account is disabled")
	}

	c, err := FromUser(user)
	if err != nil {
		return Caller{}, apperr.Internal(err, "account has an invalid role")
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, c); err != nil {
			r.log.Warn("identity cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return c, nil
}

// ByExternalKey resolves the manager or author stored on visits
func (r *Resolver) ByExternalKey(ctx context.Context, key string) (Caller, error) {
	user, err := r.users.UserByExternalKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return Caller{}, ErrUnknownIdentity
	}
	if err != nil {
		return Caller{}, err
	}
	return FromUser(user)
}

// Forget drops a cached caller after the account changed
func (r *Resolver) Forget(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, userID); err != nil {
		r.log.Warn("identity cache delete failed", zap.String("user_id", userID), zap.Error(err))
	}
}
