package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/tracker"
)

// issueTestEnv runs the issue commands against an in-memory store and
// captures their output.
func issueTestEnv(t *testing.T) *bytes.Buffer {
	t.Helper()
	testEnv(t)
	viper.Set("storage.backend", "memory")

	out := &bytes.Buffer{}
	ui.Out = out
	ui.ErrOut = &bytes.Buffer{}

	issueJSON = false
	t.Cleanup(func() { issueJSON = false })
	return out
}

func createTestIssue(t *testing.T, project, title string) *models.Issue {
	t.Helper()
	svc, err := issueService()
	require.NoError(t, err)
	issue, err := svc.Create(t.Context(), project, tracker.CreateRequest{
		IssueTitle: title,
		IssueText:  "text",
		CreatedBy:  "Joe",
	})
	require.NoError(t, err)
	return issue
}

func TestParseFilterFlags(t *testing.T) {
	filters, err := parseFilterFlags([]string{"open=true", "created_by=Joe", "created_by=Ann", "status_text="})
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, filters["open"])
	assert.Equal(t, []string{"Joe", "Ann"}, filters["created_by"])
	assert.Equal(t, []string{""}, filters["status_text"])

	_, err = parseFilterFlags([]string{"open"})
	assert.Error(t, err)
	_, err = parseFilterFlags([]string{"=x"})
	assert.Error(t, err)
}

func TestIssueCreateRun(t *testing.T) {
	out := issueTestEnv(t)

	err := issueCreateRun("apitest", tracker.Fields{
		models.FieldTitle:     "Login broken",
		models.FieldText:      "500 on submit",
		models.FieldCreatedBy: "Joe",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Login broken")

	svc, err := issueService()
	require.NoError(t, err)
	issues, err := svc.List(t.Context(), "apitest", nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Open)
}

func TestIssueCreateRun_JSON(t *testing.T) {
	out := issueTestEnv(t)
	issueJSON = true

	require.NoError(t, issueCreateRun("apitest", tracker.Fields{
		models.FieldTitle:     "t",
		models.FieldText:      "x",
		models.FieldCreatedBy: "Joe",
	}))

	var issue models.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &issue))
	assert.Len(t, issue.ID, 24)
	assert.Equal(t, "t", issue.Title)
}

func TestIssueCreateRun_RequiredMissing(t *testing.T) {
	issueTestEnv(t)

	err := issueCreateRun("apitest", tracker.Fields{models.FieldTitle: "only a title"})
	require.Error(t, err)
	assert.Equal(t, "required field(s) missing", err.Error())
}

func TestIssueCreateRun_DryRun(t *testing.T) {
	issueTestEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	require.NoError(t, issueCreateRun("apitest", tracker.Fields{
		models.FieldTitle:     "t",
		models.FieldText:      "x",
		models.FieldCreatedBy: "Joe",
	}))

	svc, err := issueService()
	require.NoError(t, err)
	issues, err := svc.List(t.Context(), "apitest", nil)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestIssueListRun(t *testing.T) {
	out := issueTestEnv(t)
	createTestIssue(t, "apitest", "first issue")
	createTestIssue(t, "apitest", "second issue")
	createTestIssue(t, "other", "elsewhere")

	require.NoError(t, issueListRun("apitest", nil))
	assert.Contains(t, out.String(), "first issue")
	assert.Contains(t, out.String(), "second issue")
	assert.NotContains(t, out.String(), "elsewhere")
}

func TestIssueListRun_FilterJSON(t *testing.T) {
	out := issueTestEnv(t)
	createTestIssue(t, "apitest", "first issue")
	second := createTestIssue(t, "apitest", "second issue")
	issueJSON = true

	require.NoError(t, issueListRun("apitest", map[string][]string{"_id": {second.ID}}))

	var issues []models.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, "second issue", issues[0].Title)
}

func TestIssueListRun_Empty(t *testing.T) {
	out := issueTestEnv(t)

	require.NoError(t, issueListRun("apitest", nil))
	assert.Contains(t, out.String(), "No issues found.")
}

func TestIssueShowRun(t *testing.T) {
	out := issueTestEnv(t)
	issue := createTestIssue(t, "apitest", "show me")

	require.NoError(t, issueShowRun("apitest", issue.ID))
	assert.Contains(t, out.String(), "show me")
	assert.Contains(t, out.String(), issue.ID)

	err := issueShowRun("other", issue.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, tracker.ErrIssueNotFound)
}

func TestIssueUpdateRun(t *testing.T) {
	issueTestEnv(t)
	issue := createTestIssue(t, "apitest", "before")

	require.NoError(t, issueUpdateRun("apitest", issue.ID, tracker.Fields{
		models.FieldTitle: "after",
		models.FieldOpen:  "false",
	}))

	svc, err := issueService()
	require.NoError(t, err)
	got, err := svc.Get(t.Context(), "apitest", issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.False(t, got.Open)
	assert.Equal(t, "text", got.Text)
}

func TestIssueUpdateRun_Errors(t *testing.T) {
	issueTestEnv(t)
	issue := createTestIssue(t, "apitest", "before")

	err := issueUpdateRun("apitest", issue.ID, tracker.Fields{})
	assert.ErrorIs(t, err, tracker.ErrNoUpdateFields)

	err = issueUpdateRun("apitest", "5871dda29faedc3491ff93bb", tracker.Fields{models.FieldTitle: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, tracker.ErrCouldNotUpdate)
	assert.Equal(t, "could not update: 5871dda29faedc3491ff93bb", err.Error())
}

func TestIssueDeleteRun(t *testing.T) {
	out := issueTestEnv(t)
	issue := createTestIssue(t, "apitest", "doomed")

	require.NoError(t, issueDeleteRun("apitest", issue.ID))
	assert.Contains(t, out.String(), issue.ID)

	err := issueDeleteRun("apitest", issue.ID)
	assert.ErrorIs(t, err, tracker.ErrCouldNotDelete)
}
