package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joescharf/issuetracker/internal/models"
)

// ErrNotFound is returned when an id does not resolve to a stored issue.
// Malformed ids produce the same error.
var ErrNotFound = errors.New("issue not found")

// Store defines the persistence interface for issues. Every method is
// scoped to a single project.
type Store interface {
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, project, id string) (*models.Issue, error)
	ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error)
	UpdateIssue(ctx context.Context, project, id string, patch models.IssuePatch) error
	DeleteIssue(ctx context.Context, project, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	DBPath        string
	MongoURI      string
	MongoDatabase string
}

// Open constructs the configured backend and runs its migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case "", BackendSQLite:
		s, err = NewSQLiteStore(cfg.DBPath)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.Backend, err)
	}
	return s, nil
}

// NewID generates a new issue identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// parseID validates an identifier and returns its object id form.
func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// CanonicalID returns the normalized form of id, or false if it is malformed.
func CanonicalID(id string) (string, bool) {
	oid, ok := parseID(id)
	if !ok {
		return "", false
	}
	return oid.Hex(), true
}

// assignID gives issue a fresh id, or normalizes the one it already carries.
func assignID(issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = NewID()
		return nil
	}
	id, ok := CanonicalID(issue.ID)
	if !ok {
		return fmt.Errorf("create issue: malformed id %q", issue.ID)
	}
	issue.ID = id
	return nil
}
