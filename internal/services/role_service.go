package services

import (
	"context"
	"time"

	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// RoleResolver finds the single role an identity holds inside a school.
type RoleResolver interface {
	// Resolve returns the user's role in the school, or false when the user
	// holds none there. An unscoped request never has a role.
	Resolve(ctx context.Context, userID, schoolID uuid.UUID) (models.Role, bool, error)
	// HoldsAnyRole reports whether the user has a profile in any school.
	HoldsAnyRole(ctx context.Context, userID uuid.UUID) (bool, error)
	// Invalidate drops cached roles after the user's profiles change.
	Invalidate(userID uuid.UUID)
}

type roleKey struct {
	user   uuid.UUID
	school uuid.UUID
}

type roleResolver struct {
	repo  repositories.RoleRepository
	cache *expirable.LRU[roleKey, models.Role]
	log   logrus.FieldLogger
}

func NewRoleResolver(repo repositories.RoleRepository, size int, ttl time.Duration, log logrus.FieldLogger) RoleResolver {
	return &roleResolver{
		repo:  repo,
		cache: expirable.NewLRU[roleKey, models.Role](size, nil, ttl),
		log:   log,
	}
}

func (r *roleResolver) Resolve(ctx context.Context, userID, schoolID uuid.UUID) (models.Role, bool, error) {
	if userID == uuid.Nil || schoolID == uuid.Nil {
		return "", false, nil
	}
	key := roleKey{user: userID, school: schoolID}
	if role, ok := r.cache.Get(key); ok {
		return role, true, nil
	}

	name, err := r.repo.LookupRole(ctx, userID, schoolID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Debug("get_user_role failed, probing profile tables")
	} else if role, ok := models.ParseRole(name); ok {
		r.cache.Add(key, role)
		return role, true, nil
	}

	for _, role := range models.ProbeOrder {
		found, err := r.repo.HasProfile(ctx, role, userID, schoolID)
		if err != nil {
			return "", false, err
		}
		if found {
			r.cache.Add(key, role)
			return role, true, nil
		}
	}
	return "", false, nil
}

func (r *roleResolver) HoldsAnyRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.repo.HoldsProfile(ctx, userID)
}

func (r *roleResolver) Invalidate(userID uuid.UUID) {
	for _, key := range r.cache.Keys() {
		if key.user == userID {
			r.cache.Remove(key)
		}
	}
}
