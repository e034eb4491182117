package store

import (
	"sort"
	"strings"

	"github.com/joescharf/issuetracker/internal/models"
)

// IssueListFilter specifies filters for listing issues. Nil fields are
// unconstrained; all set fields must match.
type IssueListFilter struct {
	Project    string
	ID         *string
	Title      *string
	Text       *string
	CreatedBy  *string
	AssignedTo *string
	StatusText *string
	Open       *bool

	// NoMatch is set when a constraint can never be satisfied, e.g. an
	// unknown key or a malformed id.
	NoMatch bool
}

// ParseFilter builds a filter from query parameters. A key given several
// times must match every value.
func ParseFilter(project string, values map[string][]string) IssueListFilter {
	f := IssueListFilter{Project: project}
	for key, vals := range values {
		for _, v := range vals {
			f.add(key, strings.TrimSpace(v))
		}
	}
	return f
}

func (f *IssueListFilter) add(key, value string) {
	switch key {
	case models.FieldID:
		id, ok := CanonicalID(value)
		if !ok {
			f.NoMatch = true
			return
		}
		f.constrain(&f.ID, id)
	case models.FieldTitle:
		f.constrain(&f.Title, value)
	case models.FieldText:
		f.constrain(&f.Text, value)
	case models.FieldCreatedBy:
		f.constrain(&f.CreatedBy, value)
	case models.FieldAssignedTo:
		f.constrain(&f.AssignedTo, value)
	case models.FieldStatusText:
		f.constrain(&f.StatusText, value)
	case models.FieldOpen:
		b, ok := models.ParseBool(value)
		if !ok || (f.Open != nil && *f.Open != b) {
			f.NoMatch = true
			return
		}
		f.Open = &b
	default:
		f.NoMatch = true
	}
}

func (f *IssueListFilter) constrain(target **string, value string) {
	if *target != nil && **target != value {
		f.NoMatch = true
		return
	}
	*target = &value
}

// Matches reports whether issue satisfies every constraint in the filter.
func (f IssueListFilter) Matches(issue *models.Issue) bool {
	if f.NoMatch {
		return false
	}
	if f.Project != issue.Project {
		return false
	}
	return eq(f.ID, issue.ID) &&
		eq(f.Title, issue.Title) &&
		eq(f.Text, issue.Text) &&
		eq(f.CreatedBy, issue.CreatedBy) &&
		eq(f.AssignedTo, issue.AssignedTo) &&
		eq(f.StatusText, issue.StatusText) &&
		(f.Open == nil || *f.Open == issue.Open)
}

func eq(want *string, got string) bool {
	return want == nil || *want == got
}

// sortIssues orders issues by creation time, ties broken by id.
func sortIssues(issues []*models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if !issues[i].CreatedOn.Equal(issues[j].CreatedOn) {
			return issues[i].CreatedOn.Before(issues[j].CreatedOn)
		}
		return issues[i].ID < issues[j].ID
	})
}
