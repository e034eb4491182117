package tracker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joescharf/issuetracker/internal/models"
)

// Fields is a flat set of submitted field values keyed by wire name.
type Fields map[string]string

// FieldsFromMap coerces decoded JSON (or MCP arguments) into Fields.
// Nested values are dropped; null counts as absent.
func FieldsFromMap(m map[string]any) Fields {
	f := make(Fields, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			f[k] = val
		case bool:
			f[k] = strconv.FormatBool(val)
		case float64:
			f[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case fmt.Stringer:
			f[k] = val.String()
		}
	}
	return f
}

// FieldsFromValues takes the first value of each key of a form or query.
func FieldsFromValues(values map[string][]string) Fields {
	f := make(Fields, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			f[k] = vs[0]
		}
	}
	return f
}

func (f Fields) get(key string) string {
	return strings.TrimSpace(f[key])
}

// ID returns the trimmed _id value.
func (f Fields) ID() string {
	return f.get(models.FieldID)
}

// optional returns a pointer to the trimmed value, or nil when it is empty.
func (f Fields) optional(key string) *string {
	v := f.get(key)
	if v == "" {
		return nil
	}
	return &v
}

// CreateRequest is the validated input of Create.
type CreateRequest struct {
	IssueTitle string
	IssueText  string
	CreatedBy  string
	AssignedTo string
	StatusText string
}

// NewCreateRequest binds a create request from submitted fields.
func NewCreateRequest(f Fields) CreateRequest {
	return CreateRequest{
		IssueTitle: f.get(models.FieldTitle),
		IssueText:  f.get(models.FieldText),
		CreatedBy:  f.get(models.FieldCreatedBy),
		AssignedTo: f.get(models.FieldAssignedTo),
		StatusText: f.get(models.FieldStatusText),
	}
}

// Validate checks the required fields.
func (r CreateRequest) Validate() error {
	if r.IssueTitle == "" || r.IssueText == "" || r.CreatedBy == "" {
		return ErrRequiredFieldsMissing
	}
	return nil
}

// UpdateRequest is the validated input of Update.
type UpdateRequest struct {
	ID    string
	Patch models.IssuePatch
}

// NewUpdateRequest binds an update request from submitted fields. Empty
// values count as not sent.
func NewUpdateRequest(f Fields) UpdateRequest {
	req := UpdateRequest{
		ID: f.get(models.FieldID),
		Patch: models.IssuePatch{
			Title:      f.optional(models.FieldTitle),
			Text:       f.optional(models.FieldText),
			CreatedBy:  f.optional(models.FieldCreatedBy),
			AssignedTo: f.optional(models.FieldAssignedTo),
			StatusText: f.optional(models.FieldStatusText),
		},
	}
	if b, ok := models.ParseBool(f[models.FieldOpen]); ok {
		req.Patch.Open = &b
	}
	return req
}

// Validate checks the id and that at least one field was sent.
func (r UpdateRequest) Validate() error {
	if r.ID == "" {
		return ErrMissingID
	}
	if r.Patch.Empty() {
		return ErrNoUpdateFields
	}
	return nil
}
