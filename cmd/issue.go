package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/issuetracker/internal/models"
	"github.com/joescharf/issuetracker/internal/output"
	"github.com/joescharf/issuetracker/internal/tracker"
)

var (
	issueTitle   string
	issueText    string
	issueBy      string
	issueAssign  string
	issueStatus  string
	issueOpen    bool
	issueClosed  bool
	issueFilters []string
	issueJSON    bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage a project's issues",
	Long:  "Create, list, show, update and delete issues in the configured store.",
}

var issueCreateCmd = &cobra.Command{
	Use:     "create <project>",
	Aliases: []string{"add"},
	Short:   "Create a new issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCreateRun(args[0], changedFields(cmd))
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list <project>",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long: `List a project's issues, oldest first.

Each --filter key=value must match exactly, e.g.
  issuetracker issue list apitest --filter open=true --filter created_by=Joe`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilterFlags(issueFilters)
		if err != nil {
			return err
		}
		return issueListRun(args[0], filters)
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <project> <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0], args[1])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <project> <issue-id>",
	Short: "Update an issue",
	Long:  "Update the given fields of an issue. Fields that are not passed keep their value.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if issueOpen && issueClosed {
			return fmt.Errorf("--open and --closed are mutually exclusive")
		}
		return issueUpdateRun(args[0], args[1], changedFields(cmd))
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <project> <issue-id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueUpdateRun(args[0], args[1], tracker.Fields{models.FieldOpen: "false"})
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <project> <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0], args[1])
	},
}

// fieldFlags maps command flags to issue fields.
var fieldFlags = map[string]string{
	"title":  models.FieldTitle,
	"text":   models.FieldText,
	"by":     models.FieldCreatedBy,
	"assign": models.FieldAssignedTo,
	"status": models.FieldStatusText,
}

func addFieldFlags(cmd *cobra.Command, verb string) {
	cmd.Flags().StringVar(&issueTitle, "title", "", verb+" issue title")
	cmd.Flags().StringVar(&issueText, "text", "", verb+" issue text")
	cmd.Flags().StringVar(&issueBy, "by", "", verb+" reporter (created_by)")
	cmd.Flags().StringVar(&issueAssign, "assign", "", verb+" assignee (assigned_to)")
	cmd.Flags().StringVar(&issueStatus, "status", "", verb+" status text")
}

func init() {
	addFieldFlags(issueCreateCmd, "Set")
	_ = issueCreateCmd.MarkFlagRequired("title")
	_ = issueCreateCmd.MarkFlagRequired("text")
	_ = issueCreateCmd.MarkFlagRequired("by")

	issueListCmd.Flags().StringArrayVarP(&issueFilters, "filter", "f", nil, "Filter as key=value (repeatable)")

	addFieldFlags(issueUpdateCmd, "New")
	issueUpdateCmd.Flags().BoolVar(&issueOpen, "open", false, "Reopen the issue")
	issueUpdateCmd.Flags().BoolVar(&issueClosed, "closed", false, "Close the issue")

	for _, c := range []*cobra.Command{issueCreateCmd, issueListCmd, issueShowCmd} {
		c.Flags().BoolVar(&issueJSON, "json", false, "Print JSON instead of a table")
	}

	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueCloseCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

// changedFields collects the field flags the user actually passed.
func changedFields(cmd *cobra.Command) tracker.Fields {
	f := tracker.Fields{}
	for flag, field := range fieldFlags {
		if cmd.Flags().Changed(flag) {
			f[field], _ = cmd.Flags().GetString(flag)
		}
	}
	if issueOpen {
		f[models.FieldOpen] = "true"
	}
	if issueClosed {
		f[models.FieldOpen] = "false"
	}
	return f
}

// parseFilterFlags turns key=value pairs into query-style filters.
func parseFilterFlags(pairs []string) (map[string][]string, error) {
	filters := make(map[string][]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (want key=value)", pair)
		}
		filters[key] = append(filters[key], value)
	}
	return filters, nil
}

func issueService() (*tracker.Service, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return tracker.NewService(s), nil
}

func issueCreateRun(project string, f tracker.Fields) error {
	svc, err := issueService()
	if err != nil {
		return err
	}

	req := tracker.NewCreateRequest(f)
	if err := req.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create issue in %s: %s", project, req.IssueTitle)
		return nil
	}

	issue, err := svc.Create(context.Background(), project, req)
	if err != nil {
		return err
	}

	if issueJSON {
		return ui.JSON(issue)
	}
	ui.Success("Created issue %s in %s: %s", output.IssueID(issue.ID), project, issue.Title)
	return nil
}

func issueListRun(project string, filters map[string][]string) error {
	svc, err := issueService()
	if err != nil {
		return err
	}

	issues, err := svc.List(context.Background(), project, filters)
	if err != nil {
		return err
	}

	if issueJSON {
		return ui.JSON(issues)
	}

	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	return ui.IssueTable(issues)
}

func issueShowRun(project, id string) error {
	svc, err := issueService()
	if err != nil {
		return err
	}

	issue, err := svc.Get(context.Background(), project, id)
	if err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}

	if issueJSON {
		return ui.JSON(issue)
	}

	ui.IssueDetail(project, issue)
	return nil
}

func issueUpdateRun(project, id string, f tracker.Fields) error {
	svc, err := issueService()
	if err != nil {
		return err
	}

	f[models.FieldID] = id
	req := tracker.NewUpdateRequest(f)
	if err := req.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would update issue %s in %s", id, project)
		return nil
	}

	resp, err := svc.Update(context.Background(), project, req)
	if err != nil {
		return logicalError(resp, err)
	}

	ui.Success("Updated issue %s", output.IssueID(resp.ID))
	return nil
}

func issueDeleteRun(project, id string) error {
	svc, err := issueService()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue %s from %s", id, project)
		return nil
	}

	resp, err := svc.Delete(context.Background(), project, id)
	if err != nil {
		return logicalError(resp, err)
	}

	ui.Success("Deleted issue %s", output.IssueID(resp.ID))
	return nil
}

// logicalError renders a failed update/delete the way the API reports it.
func logicalError(resp tracker.Response, err error) error {
	if resp.ID == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, resp.ID)
}
