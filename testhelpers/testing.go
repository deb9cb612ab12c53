package testhelpers

import (
	"context"
	"io"
	"os"
	"testing"

	"schoolhub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. The test
// is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, connString, log)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}

	db := &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
	t.Cleanup(func() { _ = db.Cleanup() })
	return db
}

// SetupTestSchool creates a school with a unique subdomain and removes it,
// with everything it owns, when the test ends.
func SetupTestSchool(t *testing.T, db *TestDB) uuid.UUID {
	t.Helper()

	schoolID := uuid.New()
	subdomain := "test-" + schoolID.String()[:8]
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO schools (id, name, subdomain) VALUES ($1, $2, $3)`,
		schoolID, "Test School "+subdomain, subdomain)
	if err != nil {
		t.Fatalf("Failed to create test school: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM schools WHERE id = $1`, schoolID)
	})
	return schoolID
}

// SetupTestUser records an identity, optionally bound to a school.
func SetupTestUser(t *testing.T, db *TestDB, schoolID *uuid.UUID) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO users (id, email, school_id) VALUES ($1, $2, $3)`,
		userID, userID.String()[:8]+"@example.com", schoolID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})
	return userID
}
