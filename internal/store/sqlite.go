package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/issuetracker/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all access and makes each statement atomic with respect
	// to concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// now returns the current time at the millisecond precision every backend stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const issueColumns = `id, project, issue_title, issue_text, created_by, assigned_to, status_text, open, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	if err := row.Scan(&issue.ID, &issue.Project, &issue.Title, &issue.Text, &issue.CreatedBy,
		&issue.AssignedTo, &issue.StatusText, &issue.Open, &issue.CreatedOn, &issue.UpdatedOn); err != nil {
		return nil, err
	}
	issue.CreatedOn = issue.CreatedOn.UTC()
	issue.UpdatedOn = issue.UpdatedOn.UTC()
	return issue, nil
}

func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if err := assignID(issue); err != nil {
		return err
	}
	ts := now()
	issue.CreatedOn = ts
	issue.UpdatedOn = ts

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (`+issueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Project, issue.Title, issue.Text, issue.CreatedBy,
		issue.AssignedTo, issue.StatusText, boolToInt(issue.Open), issue.CreatedOn, issue.UpdatedOn,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, project, id string) (*models.Issue, error) {
	id, ok := CanonicalID(id)
	if !ok {
		return nil, ErrNotFound
	}

	issue, err := scanIssue(s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ? AND project = ?`, id, project,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

func (s *SQLiteStore) ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error) {
	if filter.NoMatch {
		return []*models.Issue{}, nil
	}

	conditions := []string{"project = ?"}
	args := []any{filter.Project}

	addString := func(column string, v *string) {
		if v != nil {
			conditions = append(conditions, column+" = ?")
			args = append(args, *v)
		}
	}
	addString("id", filter.ID)
	addString("issue_title", filter.Title)
	addString("issue_text", filter.Text)
	addString("created_by", filter.CreatedBy)
	addString("assigned_to", filter.AssignedTo)
	addString("status_text", filter.StatusText)
	if filter.Open != nil {
		conditions = append(conditions, "open = ?")
		args = append(args, boolToInt(*filter.Open))
	}

	query := `SELECT ` + issueColumns + ` FROM issues WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_on, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	issues := []*models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// UpdateIssue writes only the patched columns, so concurrent updates to
// different fields of the same issue do not overwrite each other.
func (s *SQLiteStore) UpdateIssue(ctx context.Context, project, id string, patch models.IssuePatch) error {
	id, ok := CanonicalID(id)
	if !ok {
		return ErrNotFound
	}

	var sets []string
	var args []any
	setString := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	setString("issue_title", patch.Title)
	setString("issue_text", patch.Text)
	setString("created_by", patch.CreatedBy)
	setString("assigned_to", patch.AssignedTo)
	setString("status_text", patch.StatusText)
	if patch.Open != nil {
		sets = append(sets, "open = ?")
		args = append(args, boolToInt(*patch.Open))
	}
	sets = append(sets, "updated_on = ?")
	args = append(args, now(), id, project)

	result, err := s.db.ExecContext(ctx,
		`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ? AND project = ?`, args...)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteIssue(ctx context.Context, project, id string) error {
	id, ok := CanonicalID(id)
	if !ok {
		return ErrNotFound
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM issues WHERE id = ? AND project = ?", id, project)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
