package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/tracker"
)

var (
	importProject string
	importBy      string
)

var issueImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import issues from a markdown file",
	Long: `Import issues from a markdown file.

Every numbered ("1. text", "1.2 text") or bulleted ("- text") line becomes
an issue whose title is the item text. Items may be grouped under
"## Project <name>" headings; items outside a heading go to --project.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(args[0])
	},
}

func init() {
	issueImportCmd.Flags().StringVar(&importProject, "project", "", "Project for items outside a \"## Project\" heading")
	issueImportCmd.Flags().StringVar(&importBy, "by", "", "Reporter recorded as created_by (required)")
	_ = issueImportCmd.MarkFlagRequired("by")
	issueCmd.AddCommand(issueImportCmd)
}

// importedIssue is one list item found in a markdown file.
type importedIssue struct {
	Project string
	Title   string
	Text    string
}

func issueImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	items := parseMarkdownIssues(content)
	if len(items) == 0 {
		ui.Info("No list items found in %s", file)
		return nil
	}

	svc, err := issueService()
	if err != nil {
		return err
	}
	return createImportedIssues(context.Background(), svc, items)
}

// parseSubIssueNumber checks if a line starts with a sub-issue number like "1.1" or "2.3."
// Returns the title text and true if it's a sub-issue, or empty and false otherwise.
func parseSubIssueNumber(line string) (title string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	i++
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return "", false // "1. text" is a top-level item
	}
	if i < len(line) && line[i] == '.' {
		i++
	}
	if i >= len(line) || line[i] != ' ' {
		return "", false
	}
	title = strings.TrimSpace(line[i:])
	if title == "" {
		return "", false
	}
	return title, true
}

// listItemTitle returns the text of a "1. text", "- text" or "* text" line.
func listItemTitle(line string) (title string, numbered bool) {
	if len(line) <= 2 {
		return "", false
	}
	for i, c := range line {
		if c == '.' && i > 0 && i < 4 {
			return strings.TrimSpace(line[i+1:]), true
		}
		if c < '0' || c > '9' {
			break
		}
	}
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), false
	}
	return "", false
}

// parseMarkdownIssues extracts numbered and bulleted items. A sub-item's
// text carries its parent line for context.
func parseMarkdownIssues(content string) []importedIssue {
	var issues []importedIssue
	currentProject := ""
	lastParentLine := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if heading, ok := strings.CutPrefix(line, "## "); ok {
			heading = strings.TrimSpace(heading)
			if strings.HasPrefix(strings.ToLower(heading), "project ") {
				currentProject = strings.TrimSpace(heading[len("project "):])
			}
			lastParentLine = ""
			continue
		}

		if subTitle, ok := parseSubIssueNumber(line); ok {
			text := line
			if lastParentLine != "" {
				text = lastParentLine + "\n" + line
			}
			issues = append(issues, importedIssue{Project: currentProject, Title: subTitle, Text: text})
			continue
		}

		title, numbered := listItemTitle(line)
		if title == "" {
			continue
		}
		if numbered {
			lastParentLine = line
		}
		issues = append(issues, importedIssue{Project: currentProject, Title: title, Text: line})
	}

	return issues
}

// createImportedIssues stores each item through the tracker service. Items
// whose title already exists in the project are skipped, so re-importing a
// file is a no-op.
func createImportedIssues(ctx context.Context, svc *tracker.Service, items []importedIssue) error {
	created := 0
	skipped := 0
	existing := 0
	projects := make(map[string]bool)
	seen := make(map[string]map[string]bool)

	for _, item := range items {
		project := item.Project
		if project == "" {
			project = importProject
		}
		if project == "" {
			ui.Warning("Skipping issue %q: no project (use --project)", item.Title)
			skipped++
			continue
		}

		if seen[project][item.Title] {
			existing++
			continue
		}
		found, err := svc.List(ctx, project, map[string][]string{models.FieldTitle: {item.Title}})
		if err != nil {
			return err
		}
		if len(found) > 0 {
			existing++
			continue
		}
		if seen[project] == nil {
			seen[project] = make(map[string]bool)
		}
		seen[project][item.Title] = true

		if dryRun {
			ui.DryRunMsg("Would create issue in %s: %s", project, item.Title)
			continue
		}

		if _, err := svc.Create(ctx, project, tracker.CreateRequest{
			IssueTitle: item.Title,
			IssueText:  item.Text,
			CreatedBy:  importBy,
		}); err != nil {
			ui.Warning("Failed to create issue %q: %v", item.Title, err)
			skipped++
			continue
		}
		created++
		projects[project] = true
	}

	if !dryRun {
		ui.Success("Created %d issues across %d projects", created, len(projects))
	}
	if existing > 0 {
		ui.Info("%d issues already present", existing)
	}
	if skipped > 0 {
		ui.Warning("Skipped %d issues", skipped)
	}
	return nil
}
