package repositories

import (
	"context"
	"fmt"

	"schoolhub/internal/models"

	"github.com/google/uuid"
)

// anyProfileSQL reports whether an identity holds a profile row in any school.
const anyProfileSQL = `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)
	OR EXISTS (SELECT 1 FROM teachers WHERE user_id = $1)
	OR EXISTS (SELECT 1 FROM students WHERE user_id = $1)
	OR EXISTS (SELECT 1 FROM parents WHERE user_id = $1)`

type RoleRepository interface {
	// LookupRole calls the trusted get_user_role database function, which
	// reads the profile tables of one school bypassing row-level policies.
	// An empty string means no role was found.
	LookupRole(ctx context.Context, userID, schoolID uuid.UUID) (string, error)
	// HasProfile reports whether the role's profile table has a row for
	// userID in the school.
	HasProfile(ctx context.Context, role models.Role, userID, schoolID uuid.UUID) (bool, error)
	// HoldsProfile reports whether userID has a profile in any school.
	HoldsProfile(ctx context.Context, userID uuid.UUID) (bool, error)
}

type roleRepo struct {
	db DBTX
}

func NewRoleRepo(db DBTX) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) LookupRole(ctx context.Context, userID, schoolID uuid.UUID) (string, error) {
	var role *string
	if err := r.db.QueryRow(ctx, `SELECT get_user_role($1, $2)`, userID, schoolID).Scan(&role); err != nil {
		return "", err
	}
	if role == nil {
		return "", nil
	}
	return *role, nil
}

func (r *roleRepo) HasProfile(ctx context.Context, role models.Role, userID, schoolID uuid.UUID) (bool, error) {
	table := role.ProfileTable()
	if table == "" {
		return false, fmt.Errorf("no profile table for role %q", role)
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND school_id = $2)`, ident(table))
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, schoolID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *roleRepo) HoldsProfile(ctx context.Context, userID uuid.UUID) (bool, error) {
	return holdsProfile(ctx, r.db, userID)
}

func holdsProfile(ctx context.Context, db DBTX, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := db.QueryRow(ctx, anyProfileSQL, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
