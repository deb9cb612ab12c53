package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"schoolhub/internal/common"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SchoolColumn is the tenant column present on every school-owned table.
const SchoolColumn = "school_id"

// Filter is a set of equality predicates. A nil value matches NULL.
type Filter map[string]interface{}

// Page controls ordering and paging of a scoped select. Zero Limit means all rows.
type Page struct {
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// scopedTables lists the tables the helpers may touch and their columns, in
// select order. The first column is always the primary key "id".
var scopedTables = map[string][]string{
	"admins":               {"id", "school_id", "user_id", "full_name", "email", "phone", "created_at"},
	"teachers":             {"id", "school_id", "user_id", "full_name", "email", "specialization", "created_at"},
	"students":             {"id", "school_id", "user_id", "full_name", "email", "class_id", "admission_no", "date_of_birth", "created_at"},
	"parents":              {"id", "school_id", "user_id", "full_name", "email", "phone", "created_at"},
	"classes":              {"id", "school_id", "name", "grade_level", "class_teacher_id", "created_at"},
	"subjects":             {"id", "school_id", "name", "code", "teacher_id", "created_at"},
	"timetable_entries":    {"id", "school_id", "class_id", "subject_id", "teacher_id", "day", "start_time", "end_time", "room", "created_at"},
	"whitelisted_teachers": {"id", "school_id", "email", "invited_by", "used_at", "expires_at", "created_at"},
	"assignments":          {"id", "school_id", "class_id", "subject_id", "teacher_id", "title", "description", "due_date", "max_score", "created_at"},
	"fees":                 {"id", "school_id", "student_id", "title", "amount", "due_date", "status", "paid_at", "created_at"},
	"ai_insights":          {"id", "school_id", "kind", "subject_id", "requested_by", "result", "model", "created_at"},
}

// Scoped runs reads and writes that always carry an equality predicate on
// school_id.
//
// The school id given to every method must be the resolved tenant of the
// acting user, taken from the request context. Passing a client-supplied id
// defeats the isolation these helpers provide.
type Scoped struct {
	db DBTX
}

func NewScoped(db DBTX) *Scoped {
	return &Scoped{db: db}
}

// WithTx returns helpers bound to tx.
func (s *Scoped) WithTx(tx DBTX) *Scoped {
	return &Scoped{db: tx}
}

func tableColumns(table string) ([]string, error) {
	cols, ok := scopedTables[table]
	if !ok {
		return nil, fmt.Errorf("scoped: unknown table %q", table)
	}
	return cols, nil
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// where builds "school_id = $1 AND ..." with placeholders starting at start.
func where(cols []string, schoolID uuid.UUID, filters Filter, start int) (string, []interface{}, error) {
	clauses := []string{fmt.Sprintf("%s = $%d", ident(SchoolColumn), start)}
	args := []interface{}{schoolID}
	for _, col := range sortedKeys(filters) {
		if col == SchoolColumn {
			continue
		}
		if !hasColumn(cols, col) {
			return "", nil, fmt.Errorf("scoped: unknown column %q: %w", col, common.ErrValidation)
		}
		if filters[col] == nil {
			clauses = append(clauses, ident(col)+" IS NULL")
			continue
		}
		args = append(args, filters[col])
		clauses = append(clauses, fmt.Sprintf("%s = $%d", ident(col), start+len(args)-1))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func selectList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}

// Select returns rows of table owned by the school that match filters.
func (s *Scoped) Select(ctx context.Context, table string, schoolID uuid.UUID, filters Filter, page Page) (pgx.Rows, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	cols, err := tableColumns(table)
	if err != nil {
		return nil, err
	}
	cond, args, err := where(cols, schoolID, filters, 1)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE %s", selectList(cols), ident(table), cond)
	if page.OrderBy != "" {
		if !hasColumn(cols, page.OrderBy) {
			return nil, fmt.Errorf("scoped: cannot order by %q: %w", page.OrderBy, common.ErrValidation)
		}
		dir := "ASC"
		if page.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", ident(page.OrderBy), dir)
	}
	if page.Limit > 0 {
		args = append(args, page.Limit, page.Offset)
		fmt.Fprintf(&sb, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return s.db.Query(ctx, sb.String(), args...)
}

// Insert adds a row owned by the school. Any school_id in values is replaced by
// schoolID. If values has no id, one is generated. It returns the row id.
func (s *Scoped) Insert(ctx context.Context, table string, schoolID uuid.UUID, values map[string]interface{}) (uuid.UUID, error) {
	if schoolID == uuid.Nil {
		return uuid.Nil, common.ErrUnscoped
	}
	cols, err := tableColumns(table)
	if err != nil {
		return uuid.Nil, err
	}

	row := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		row[k] = v
	}
	row[SchoolColumn] = schoolID
	id, ok := row["id"].(uuid.UUID)
	if !ok || id == uuid.Nil {
		id = uuid.New()
		row["id"] = id
	}

	names := sortedKeys(row)
	placeholders := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		if !hasColumn(cols, name) {
			return uuid.Nil, fmt.Errorf("scoped: unknown column %q: %w", name, common.ErrValidation)
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[name]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident(table), selectList(names), strings.Join(placeholders, ", "))
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Update sets values on the school's row id. The tenant and key columns cannot
// be changed. It returns ErrNotFound when no row of this school matched.
func (s *Scoped) Update(ctx context.Context, table string, schoolID, id uuid.UUID, values map[string]interface{}) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	cols, err := tableColumns(table)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("scoped: nothing to update: %w", common.ErrValidation)
	}

	names := sortedKeys(values)
	sets := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names)+2)
	for _, name := range names {
		if name == SchoolColumn || name == "id" {
			return fmt.Errorf("scoped: column %q is immutable: %w", name, common.ErrValidation)
		}
		if !hasColumn(cols, name) {
			return fmt.Errorf("scoped: unknown column %q: %w", name, common.ErrValidation)
		}
		args = append(args, values[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(name), len(args)))
	}
	args = append(args, schoolID, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d AND %s = $%d",
		ident(table), strings.Join(sets, ", "), ident(SchoolColumn), len(args)-1, ident("id"), len(args))
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}
	return nil
}

// Delete removes the school's row id, returning ErrNotFound when nothing matched.
func (s *Scoped) Delete(ctx context.Context, table string, schoolID, id uuid.UUID) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	if _, err := tableColumns(table); err != nil {
		return err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", ident(table), ident(SchoolColumn), ident("id"))
	tag, err := s.db.Exec(ctx, sql, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, common.ErrNotFound)
	}
	return nil
}

// ScopedList collects the matching rows into T by db tag.
func ScopedList[T any](ctx context.Context, s *Scoped, table string, schoolID uuid.UUID, filters Filter, page Page) ([]*T, error) {
	rows, err := s.Select(ctx, table, schoolID, filters, page)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
}

// ScopedGet loads one row by id, returning ErrNotFound when the school has no
// such row.
func ScopedGet[T any](ctx context.Context, s *Scoped, table string, schoolID, id uuid.UUID) (*T, error) {
	return ScopedFind[T](ctx, s, table, schoolID, Filter{"id": id})
}

// ScopedFind loads the single row matching filters.
func ScopedFind[T any](ctx context.Context, s *Scoped, table string, schoolID uuid.UUID, filters Filter) (*T, error) {
	rows, err := s.Select(ctx, table, schoolID, filters, Page{})
	if err != nil {
		return nil, err
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", table, common.ErrNotFound)
	}
	return item, err
}
