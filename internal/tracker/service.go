// Package tracker implements the issue operations on top of a store:
// input validation, project scoping, and the collapse of storage failures
// into the logical errors callers see.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/store"
)

// Success results.
const (
	ResultUpdated = "successfully updated"
	ResultDeleted = "successfully deleted"
)

// Service applies validation rules and translates requests to store calls.
type Service struct {
	store store.Store
}

// NewService creates a Service backed by s.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Create validates req and stores a new open issue under project.
func (s *Service) Create(ctx context.Context, project string, req CreateRequest) (*models.Issue, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	issue := &models.Issue{
		Project:    project,
		Title:      req.IssueTitle,
		Text:       req.IssueText,
		CreatedBy:  req.CreatedBy,
		AssignedTo: req.AssignedTo,
		StatusText: req.StatusText,
		Open:       true,
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	slog.Debug("issue created", "project", project, "id", issue.ID)
	return issue, nil
}

// List returns the project's issues matching every filter pair.
func (s *Service) List(ctx context.Context, project string, filters map[string][]string) ([]*models.Issue, error) {
	issues, err := s.store.ListIssues(ctx, store.ParseFilter(project, filters))
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// Get returns a single issue. Malformed and unknown ids both yield ErrIssueNotFound.
func (s *Service) Get(ctx context.Context, project, id string) (*models.Issue, error) {
	issue, err := s.store.GetIssue(ctx, project, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// Update merges the supplied fields into an existing issue. Any storage
// failure is reported as ErrCouldNotUpdate.
func (s *Service) Update(ctx context.Context, project string, req UpdateRequest) (Response, error) {
	if err := req.Validate(); err != nil {
		return ErrorResponse(req.ID, err), err
	}

	if err := s.store.UpdateIssue(ctx, project, req.ID, req.Patch); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("update issue failed", "project", project, "id", req.ID, "error", err)
		}
		return ErrorResponse(req.ID, ErrCouldNotUpdate), ErrCouldNotUpdate
	}

	slog.Debug("issue updated", "project", project, "id", req.ID)
	return Response{Result: ResultUpdated, ID: req.ID}, nil
}

// Delete removes an issue. Any storage failure is reported as ErrCouldNotDelete.
func (s *Service) Delete(ctx context.Context, project, id string) (Response, error) {
	if id == "" {
		return ErrorResponse(id, ErrMissingID), ErrMissingID
	}

	if err := s.store.DeleteIssue(ctx, project, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("delete issue failed", "project", project, "id", id, "error", err)
		}
		return ErrorResponse(id, ErrCouldNotDelete), ErrCouldNotDelete
	}

	slog.Debug("issue deleted", "project", project, "id", id)
	return Response{Result: ResultDeleted, ID: id}, nil
}
