package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsFromMap(t *testing.T) {
	f := FieldsFromMap(map[string]any{
		"issue_title": "Issue",
		"open":        false,
		"count":       float64(3),
		"nested":      map[string]any{"a": 1},
		"nothing":     nil,
	})

	assert.Equal(t, "Issue", f["issue_title"])
	assert.Equal(t, "false", f["open"])
	assert.Equal(t, "3", f["count"])
	assert.NotContains(t, f, "nested")
	assert.NotContains(t, f, "nothing")
}

func TestFieldsFromValues(t *testing.T) {
	f := FieldsFromValues(map[string][]string{"_id": {"abc", "def"}, "empty": {}})
	assert.Equal(t, "abc", f.ID())
	assert.NotContains(t, f, "empty")
}

func TestNewCreateRequest_TrimsAndValidates(t *testing.T) {
	req := NewCreateRequest(Fields{
		"issue_title": "  Issue ",
		"issue_text":  "Functional Test",
		"created_by":  "   ",
		"unknown":     "ignored",
	})
	assert.Equal(t, "Issue", req.IssueTitle)
	assert.Empty(t, req.CreatedBy)
	assert.ErrorIs(t, req.Validate(), ErrRequiredFieldsMissing)

	req.CreatedBy = "FCC"
	assert.NoError(t, req.Validate())
}

func TestNewUpdateRequest(t *testing.T) {
	req := NewUpdateRequest(Fields{
		"_id":         " 60c3f666c080628cdd8e5823 ",
		"issue_title": "new title",
		"issue_text":  "",
		"open":        "FALSE",
	})

	assert.Equal(t, "60c3f666c080628cdd8e5823", req.ID)
	require.NotNil(t, req.Patch.Title)
	assert.Equal(t, "new title", *req.Patch.Title)
	assert.Nil(t, req.Patch.Text)
	require.NotNil(t, req.Patch.Open)
	assert.False(t, *req.Patch.Open)
	assert.NoError(t, req.Validate())
}

func TestUpdateRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, UpdateRequest{}.Validate(), ErrMissingID)
	assert.ErrorIs(t, UpdateRequest{ID: "x"}.Validate(), ErrNoUpdateFields)
}

func TestIsLogical(t *testing.T) {
	assert.True(t, IsLogical(ErrCouldNotDelete))
	assert.False(t, IsLogical(assert.AnError))
}
