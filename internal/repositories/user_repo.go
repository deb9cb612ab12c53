package repositories

import (
	"context"
	"errors"
	"fmt"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetSchoolID(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error)
	SetSchool(ctx context.Context, id, schoolID uuid.UUID) error
}

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

// Upsert records an identity seen in a verified token. The stored school is
// never touched here.
func (r *userRepo) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, full_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.FullName)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, full_name, school_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.FullName, &user.SchoolID, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetSchoolID returns the user's stored tenant association. A missing user or
// a NULL school both report false.
func (r *userRepo) GetSchoolID(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	var schoolID *uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT school_id FROM users WHERE id = $1`, id).Scan(&schoolID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	if schoolID == nil {
		return uuid.Nil, false, nil
	}
	return *schoolID, true, nil
}

func (r *userRepo) SetSchool(ctx context.Context, id, schoolID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET school_id = $1, updated_at = NOW() WHERE id = $2`, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", common.ErrNotFound)
	}
	return nil
}
