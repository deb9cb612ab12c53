package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
)

type WhitelistRepository interface {
	Create(ctx context.Context, entry *models.WhitelistedTeacher) error
	List(ctx context.Context, schoolID uuid.UUID) ([]*models.WhitelistedTeacher, error)
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	FindUsable(ctx context.Context, schoolID uuid.UUID, email string, now time.Time) (*models.WhitelistedTeacher, error)
	MarkUsed(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type whitelistRepo struct {
	db     DBTX
	scoped *Scoped
}

func NewWhitelistRepo(db DBTX) WhitelistRepository {
	return &whitelistRepo{db: db, scoped: NewScoped(db)}
}

func (r *whitelistRepo) Create(ctx context.Context, entry *models.WhitelistedTeacher) error {
	id, err := r.scoped.Insert(ctx, "whitelisted_teachers", entry.SchoolID, map[string]interface{}{
		"id":         entry.ID,
		"email":      strings.ToLower(entry.Email),
		"invited_by": entry.InvitedBy,
		"expires_at": entry.ExpiresAt,
		"created_at": entry.CreatedAt,
	})
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *whitelistRepo) List(ctx context.Context, schoolID uuid.UUID) ([]*models.WhitelistedTeacher, error) {
	return ScopedList[models.WhitelistedTeacher](ctx, r.scoped, "whitelisted_teachers", schoolID, nil, Page{OrderBy: "created_at", Desc: true})
}

func (r *whitelistRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return r.scoped.Delete(ctx, "whitelisted_teachers", schoolID, id)
}

// FindUsable returns the unused, unexpired entry for email in the school.
func (r *whitelistRepo) FindUsable(ctx context.Context, schoolID uuid.UUID, email string, now time.Time) (*models.WhitelistedTeacher, error) {
	entry, err := ScopedFind[models.WhitelistedTeacher](ctx, r.scoped, "whitelisted_teachers", schoolID, Filter{
		"email":   strings.ToLower(strings.TrimSpace(email)),
		"used_at": nil,
	})
	if err != nil {
		return nil, err
	}
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
		return nil, fmt.Errorf("whitelist entry expired: %w", common.ErrNotFound)
	}
	return entry, nil
}

func (r *whitelistRepo) MarkUsed(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error {
	return r.scoped.Update(ctx, "whitelisted_teachers", schoolID, id, map[string]interface{}{"used_at": at})
}

// DeleteExpired removes unused entries past expiry across all schools.
func (r *whitelistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM whitelisted_teachers WHERE used_at IS NULL AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
