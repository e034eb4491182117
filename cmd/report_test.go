package cmd

import (
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/tracker"
)

func seedReportIssues(t *testing.T) {
	t.Helper()
	svc, err := issueService()
	require.NoError(t, err)

	for _, req := range []tracker.CreateRequest{
		{IssueTitle: "a", IssueText: "x", CreatedBy: "Joe", AssignedTo: "Ann", StatusText: "In QA"},
		{IssueTitle: "b", IssueText: "x", CreatedBy: "Joe", AssignedTo: "Ann"},
		{IssueTitle: "c", IssueText: "x, with comma", CreatedBy: "Bob"},
	} {
		_, err := svc.Create(t.Context(), "apitest", req)
		require.NoError(t, err)
	}

	closed := createTestIssue(t, "apitest", "done")
	_, err = svc.Update(t.Context(), "apitest", tracker.NewUpdateRequest(tracker.Fields{
		models.FieldID:   closed.ID,
		models.FieldOpen: "false",
	}))
	require.NoError(t, err)
}

func TestExportRun_JSON(t *testing.T) {
	out := issueTestEnv(t)
	seedReportIssues(t)
	reportFormat = "json"

	require.NoError(t, exportRun("apitest", map[string][]string{"created_by": {"Joe"}}))

	var issues []models.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &issues))
	require.Len(t, issues, 3)
	assert.Equal(t, "a", issues[0].Title)
	assert.Equal(t, "done", issues[2].Title)
}

func TestExportRun_CSV(t *testing.T) {
	out := issueTestEnv(t)
	seedReportIssues(t)
	reportFormat = "csv"
	defer func() { reportFormat = "json" }()

	require.NoError(t, exportRun("apitest", nil))

	records, err := csv.NewReader(out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "_id", records[0][0])
	assert.Equal(t, "x, with comma", records[3][2])
	assert.Equal(t, "false", records[4][6])
}

func TestExportRun_Markdown(t *testing.T) {
	out := issueTestEnv(t)
	seedReportIssues(t)
	reportFormat = "markdown"
	defer func() { reportFormat = "json" }()

	require.NoError(t, exportRun("apitest", nil))
	assert.Contains(t, out.String(), "# Issues: apitest")
	assert.Contains(t, out.String(), "| done | closed |")
}

func TestExportRun_UnknownFormat(t *testing.T) {
	issueTestEnv(t)
	reportFormat = "xml"
	defer func() { reportFormat = "json" }()

	err := exportRun("apitest", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestReportRun(t *testing.T) {
	out := issueTestEnv(t)
	seedReportIssues(t)

	require.NoError(t, reportRun("apitest"))
	text := out.String()
	assert.Contains(t, text, "- Issues: 3 open, 1 closed")
	assert.Contains(t, text, "- Ann: 2")
	assert.Contains(t, text, "- (unset): 1")
	assert.Contains(t, text, "- In QA: 1")
	assert.Contains(t, text, "- (unset): 2")
}

func TestCountKeys(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, countKeys(map[string]int{"a": 1, "b": 3, "c": 1}))
}
