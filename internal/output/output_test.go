package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuetracker/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestIssueID(t *testing.T) {
	assert.Contains(t, IssueID("60c3f666c080628cdd8e5823"), "60c3f666c080628cdd8e5823")
}

func TestOpenLabel(t *testing.T) {
	assert.Contains(t, OpenLabel(true), "open")
	assert.Contains(t, OpenLabel(false), "closed")
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "Joey", OrDash("Joey"))
}

func TestJSON(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.JSON(map[string]string{"result": "successfully deleted"}))
	assert.Equal(t, "{\n  \"result\": \"successfully deleted\"\n}\n", out.String())
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Title"})
	require.NotNil(t, table)

	table.Append([]string{"60c3f666", "login broken"})
	table.Append([]string{"60c3f605", "typo in footer"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "login broken"), "table output should contain issue titles")
	assert.True(t, strings.Contains(result, "typo in footer"), "table output should contain issue titles")
}

func sampleIssue() *models.Issue {
	ts := time.Date(2021, 6, 12, 10, 30, 0, 0, time.UTC)
	return &models.Issue{
		ID:        "60c3f666c080628cdd8e5823",
		Title:     "login broken",
		Text:      "cannot sign in",
		CreatedBy: "Joe",
		Open:      true,
		CreatedOn: ts,
		UpdatedOn: ts,
	}
}

func TestIssueTable(t *testing.T) {
	u, out, _ := newTestUI()
	closed := sampleIssue()
	closed.ID = "60c3f605c080628cdd8e5820"
	closed.Title = "typo in footer"
	closed.Open = false
	closed.AssignedTo = "Ann"

	require.NoError(t, u.IssueTable([]*models.Issue{sampleIssue(), closed}))

	result := out.String()
	for _, want := range []string{"60c3f666c080628cdd8e5823", "login broken", "open", "typo in footer", "closed", "Ann"} {
		assert.Contains(t, result, want)
	}
}

func TestIssueDetail(t *testing.T) {
	u, out, _ := newTestUI()
	u.IssueDetail("apitest", sampleIssue())

	result := out.String()
	assert.Contains(t, result, "Project:    apitest")
	assert.Contains(t, result, "Status:     -")
	assert.Contains(t, result, "Assigned:   -")
	assert.Contains(t, result, "Text:       cannot sign in")
	assert.Contains(t, result, "Created:    2021-06-12T10:30:00Z")
}
