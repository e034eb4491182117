package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/issuetracker/internal/models"
)

var (
	reportFormat  string
	exportFilters []string
)

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Export a project's issues as JSON, CSV, or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilterFlags(exportFilters)
		if err != nil {
			return err
		}
		return exportRun(args[0], filters)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <project>",
	Short: "Summarize a project's issues",
	Long:  "Print a Markdown summary of a project's open and closed issues by assignee and status.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringArrayVarP(&exportFilters, "filter", "f", nil, "Filter as key=value (repeatable)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
}

func listForExport(ctx context.Context, project string, filters map[string][]string) ([]*models.Issue, error) {
	svc, err := issueService()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx, project, filters)
}

func exportRun(project string, filters map[string][]string) error {
	issues, err := listForExport(context.Background(), project, filters)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(issues)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{
			models.FieldID, models.FieldTitle, models.FieldText, models.FieldCreatedBy,
			models.FieldAssignedTo, models.FieldStatusText, models.FieldOpen,
			models.FieldCreatedOn, models.FieldUpdatedOn,
		})
		for _, i := range issues {
			_ = w.Write([]string{
				i.ID, i.Title, i.Text, i.CreatedBy, i.AssignedTo, i.StatusText,
				fmt.Sprintf("%t", i.Open),
				i.CreatedOn.Format(time.RFC3339Nano), i.UpdatedOn.Format(time.RFC3339Nano),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintf(ui.Out, "# Issues: %s\n", project)
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Title | State | Status | Created By | Assigned To |")
		fmt.Fprintln(ui.Out, "|-------|-------|--------|------------|-------------|")
		for _, i := range issues {
			state := "open"
			if !i.Open {
				state = "closed"
			}
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s |\n", i.Title, state, i.StatusText, i.CreatedBy, i.AssignedTo)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

// countKeys returns the keys of m sorted by descending count, then name.
func countKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if m[keys[a]] != m[keys[b]] {
			return m[keys[a]] > m[keys[b]]
		}
		return keys[a] < keys[b]
	})
	return keys
}

func reportRun(project string) error {
	issues, err := listForExport(context.Background(), project, nil)
	if err != nil {
		return err
	}

	open, closed := 0, 0
	byAssignee := make(map[string]int)
	byStatus := make(map[string]int)
	for _, i := range issues {
		if !i.Open {
			closed++
			continue
		}
		open++
		byAssignee[orUnset(i.AssignedTo)]++
		byStatus[orUnset(i.StatusText)]++
	}

	fmt.Fprintf(ui.Out, "# Report: %s\n", project)
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "- Issues: %d open, %d closed\n", open, closed)

	if open > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "## Open by assignee")
		for _, k := range countKeys(byAssignee) {
			fmt.Fprintf(ui.Out, "- %s: %d\n", k, byAssignee[k])
		}
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "## Open by status")
		for _, k := range countKeys(byStatus) {
			fmt.Fprintf(ui.Out, "- %s: %d\n", k, byStatus[k])
		}
	}
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
