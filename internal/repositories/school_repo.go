package repositories

import (
	"context"
	"errors"
	"fmt"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type SchoolRepository interface {
	CreateWithAdmin(ctx context.Context, school *models.School, admin *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.School, error)
	Update(ctx context.Context, school *models.School) error
}

type schoolRepo struct {
	db Database
}

func NewSchoolRepo(db Database) SchoolRepository {
	return &schoolRepo{db: db}
}

const schoolColumns = `id, name, subdomain, address, phone, email, status, created_at, updated_at`

func scanSchool(row pgx.Row) (*models.School, error) {
	school := &models.School{}
	err := row.Scan(&school.ID, &school.Name, &school.Subdomain, &school.Address, &school.Phone, &school.Email, &school.Status, &school.CreatedAt, &school.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("school: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return school, nil
}

// CreateWithAdmin inserts the school, the founding admin profile and points the
// admin's user row at the new school, in one transaction.
func (r *schoolRepo) CreateWithAdmin(ctx context.Context, school *models.School, admin *models.Profile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schools (id, name, subdomain, address, phone, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, school.ID, school.Name, school.Subdomain, school.Address, school.Phone, school.Email, school.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("subdomain %q is taken: %w", school.Subdomain, common.ErrConflict)
		}
		return err
	}

	_, err = NewScoped(tx).Insert(ctx, "admins", school.ID, map[string]interface{}{
		"id":        admin.ID,
		"user_id":   admin.UserID,
		"full_name": admin.FullName,
		"email":     admin.Email,
		"phone":     admin.Phone,
	})
	if err != nil {
		return err
	}

	if admin.UserID != nil {
		_, err = tx.Exec(ctx, `UPDATE users SET school_id = $1, updated_at = NOW() WHERE id = $2`, school.ID, *admin.UserID)
		if err != nil {
			return err
		}
	}

	admin.SchoolID = school.ID
	return tx.Commit(ctx)
}

func (r *schoolRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	return scanSchool(r.db.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id))
}

func (r *schoolRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.School, error) {
	return scanSchool(r.db.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE subdomain = $1`, subdomain))
}

func (r *schoolRepo) Update(ctx context.Context, school *models.School) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schools
		SET name = $1, address = $2, phone = $3, email = $4, updated_at = NOW()
		WHERE id = $5
	`, school.Name, school.Address, school.Phone, school.Email, school.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("school: %w", common.ErrNotFound)
	}
	return nil
}
