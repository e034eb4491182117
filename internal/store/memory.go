package store

import (
	"context"
	"sync"

	"github.com/joescharf/issuetracker/internal/models"
)

// MemoryStore implements Store in process memory. Records are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	issues map[string]*models.Issue
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: make(map[string]*models.Issue)}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }

func (m *MemoryStore) CreateIssue(_ context.Context, issue *models.Issue) error {
	if err := assignID(issue); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := now()
	issue.CreatedOn = ts
	issue.UpdatedOn = ts

	stored := *issue
	m.issues[issue.ID] = &stored
	return nil
}

// lookup returns the stored record for project/id. Callers hold mu.
func (m *MemoryStore) lookup(project, id string) (*models.Issue, bool) {
	id, ok := CanonicalID(id)
	if !ok {
		return nil, false
	}
	issue, ok := m.issues[id]
	if !ok || issue.Project != project {
		return nil, false
	}
	return issue, true
}

func (m *MemoryStore) GetIssue(_ context.Context, project, id string) (*models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issue, ok := m.lookup(project, id)
	if !ok {
		return nil, ErrNotFound
	}
	out := *issue
	return &out, nil
}

func (m *MemoryStore) ListIssues(_ context.Context, filter IssueListFilter) ([]*models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issues := []*models.Issue{}
	for _, issue := range m.issues {
		if filter.Matches(issue) {
			out := *issue
			issues = append(issues, &out)
		}
	}
	sortIssues(issues)
	return issues, nil
}

func (m *MemoryStore) UpdateIssue(_ context.Context, project, id string, patch models.IssuePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.lookup(project, id)
	if !ok {
		return ErrNotFound
	}
	patch.Apply(issue)
	if ts := now(); ts.After(issue.CreatedOn) {
		issue.UpdatedOn = ts
	} else {
		issue.UpdatedOn = issue.CreatedOn
	}
	return nil
}

func (m *MemoryStore) DeleteIssue(_ context.Context, project, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.lookup(project, id)
	if !ok {
		return ErrNotFound
	}
	delete(m.issues, issue.ID)
	return nil
}
