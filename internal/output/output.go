// Package output renders issues and status lines for the issuetracker CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/issuetracker/internal/models"
)

// UI writes CLI messages and issue views. Status lines go to Out, warnings
// and dry-run notices to ErrOut.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	infoMark    = color.New(color.FgHiBlue).Sprint("i")
	okMark      = color.New(color.FgHiGreen).Sprint("✓")
	warnMark    = color.New(color.FgHiYellow).Sprint("⚠")
	verboseMark = color.New(color.FgHiBlue).Sprint("  →")

	idColor     = color.New(color.FgHiCyan).SprintFunc()
	openColor   = color.New(color.FgHiGreen).SprintFunc()
	closedColor = color.New(color.FgHiRed).SprintFunc()
)

// IssueListColumns heads the table written by IssueTable.
var IssueListColumns = []string{"ID", "Title", "State", "Status", "Created By", "Assigned To", "Updated"}

const stampLayout = "2006-01-02 15:04"

// IssueID highlights an issue id.
func IssueID(id string) string { return idColor(id) }

// OpenLabel returns "open" in green or "closed" in red.
func OpenLabel(open bool) string {
	if open {
		return openColor("open")
	}
	return closedColor("closed")
}

// OrDash returns s, or "-" when s is empty.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func line(w io.Writer, mark, format string, a []any) {
	fmt.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, a...))
}

func (u *UI) Info(format string, a ...any)    { line(u.Out, infoMark, format, a) }
func (u *UI) Success(format string, a ...any) { line(u.Out, okMark, format, a) }
func (u *UI) Warning(format string, a ...any) { line(u.ErrOut, warnMark, format, a) }

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		line(u.Out, verboseMark, format, a)
	}
}

// DryRunMsg reports an action that was skipped because of --dry-run.
func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// JSON writes v to Out as indented JSON.
func (u *UI) JSON(v any) error {
	enc := json.NewEncoder(u.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table returns a borderless, left-aligned table writing to Out.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// IssueTable writes one row per issue. Ids are printed in full so they can
// be pasted into show, update and delete.
func (u *UI) IssueTable(issues []*models.Issue) error {
	table := u.Table(IssueListColumns)
	for _, issue := range issues {
		if err := table.Append([]string{
			issue.ID,
			issue.Title,
			OpenLabel(issue.Open),
			OrDash(issue.StatusText),
			issue.CreatedBy,
			OrDash(issue.AssignedTo),
			issue.UpdatedOn.Local().Format(stampLayout),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// IssueDetail writes every field of one issue.
func (u *UI) IssueDetail(project string, issue *models.Issue) {
	fmt.Fprintf(u.Out, "%s  %s\n", IssueID(issue.ID), issue.Title)
	rows := []struct{ label, value string }{
		{"Project", project},
		{"State", OpenLabel(issue.Open)},
		{"Status", OrDash(issue.StatusText)},
		{"Created by", issue.CreatedBy},
		{"Assigned", OrDash(issue.AssignedTo)},
		{"Text", issue.Text},
		{"Created", issue.CreatedOn.Format(time.RFC3339)},
		{"Updated", issue.UpdatedOn.Format(time.RFC3339)},
	}
	for _, r := range rows {
		fmt.Fprintf(u.Out, "  %-11s %s\n", r.label+":", r.value)
	}
}
