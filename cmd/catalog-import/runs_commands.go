package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/catalog_backend/importer"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage import runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsFailCommand(ctx))
	runsCmd.AddCommand(newRunsCommitCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent import runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind models.EntityKind
			if kindFlag != "" {
				parsed, err := models.ParseEntityKind(kindFlag)
				if err != nil {
					return err
				}
				kind = parsed
			}
			reqCtx, businessId, err := ctx.requestContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}

			conn, err := svc.ListRuns(reqCtx, businessId, kind, limit, nil)
			if err != nil {
				return err
			}
			if len(conn.Edges) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No import runs")
				return nil
			}
			rows := make([][]string, 0, len(conn.Edges))
			for _, edge := range conn.Edges {
				rows = append(rows, runRow(edge.Node))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Status", "File", "Processed", "Skipped", "Errors", "Batches", "Started"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Only runs of this entity kind")
	cmd.Flags().IntVar(&limit, "limit", importer.DefaultListLimit, "Maximum runs to show")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one import run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runId, err := parseRunId(args[0])
			if err != nil {
				return err
			}
			reqCtx, businessId, err := ctx.requestContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			run, err := svc.GetRun(reqCtx, businessId, runId)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			return nil
		},
	}
}

func newRunsFailCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Mark an in-progress run as failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runId, err := parseRunId(args[0])
			if err != nil {
				return err
			}
			reqCtx, businessId, err := ctx.requestContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			run, err := svc.FailRun(reqCtx, businessId, runId, reason)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the upload was abandoned")
	return cmd
}

func newRunsCommitCommand(ctx *commandContext) *cobra.Command {
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "commit <id>",
		Short: "Commit the approved rows of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runId, err := parseRunId(args[0])
			if err != nil {
				return err
			}
			reqCtx, businessId, err := ctx.requestContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			result, err := svc.CommitRun(reqCtx, businessId, runId, importer.CommitOptions{ContinueOnError: continueOnError})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d staged rows\n", result.Committed)
			printCommitResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Record failing rows and keep going")
	return cmd
}

func parseRunId(v string) (uint, error) {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("run id must be a positive integer")
	}
	return uint(id), nil
}

func runRow(run *models.ImportRun) []string {
	return []string{
		strconv.FormatUint(uint64(run.ID), 10),
		string(run.Kind),
		string(run.Status),
		run.FileName,
		itoa(run.Processed),
		itoa(run.Skipped),
		itoa(run.ErrorCount),
		itoa(run.BatchCount),
		formatTime(run.StartedAt),
	}
}

func printRun(cmd *cobra.Command, run *models.ImportRun) {
	rows := [][]string{
		{"ID", strconv.FormatUint(uint64(run.ID), 10)},
		{"Kind", string(run.Kind)},
		{"Status", string(run.Status)},
		{"File", run.FileName},
		{"Source object", run.SourceObjectKey},
		{"Processed", itoa(run.Processed)},
		{"Skipped", itoa(run.Skipped)},
		{"Errors", itoa(run.ErrorCount)},
		{"Batches", itoa(run.BatchCount)},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
	}
	if run.FailureReason != "" {
		rows = append(rows, []string{"Failure", run.FailureReason})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
