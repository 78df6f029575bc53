package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mmdatafocus/catalog_backend/importer"
	"github.com/mmdatafocus/catalog_backend/matching"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/spf13/cobra"
)

// readRows parses a local xlsx or csv file into importer rows.
func readRows(path string) ([]importer.IncomingRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := importer.ParseFile(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	rows := make([]importer.IncomingRow, 0, len(parsed.Rows))
	for i, fields := range parsed.Rows {
		rows = append(rows, importer.IncomingRow{Index: i, Fields: models.RowPayload(fields)})
	}
	return rows, nil
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "validate <kind> <file>",
		Short: "Classify every row of a file against the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			rows, err := readRows(args[1])
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

			report, err := svc.Validate(reqCtx, businessId, kind, rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tableRows := make([][]string, 0, len(report.Rows))
			for _, rv := range report.Rows {
				if !showAll && rv.Verdict == matching.VerdictExact {
					continue
				}
				tableRows = append(tableRows, verdictRow(rv))
			}
			if len(tableRows) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"Row", "Name", "Verdict", "Match", "Score"},
					tableRows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
				))
			}
			t := report.Totals
			fmt.Fprint(out, renderTable(
				[]string{"Total", "Exact", "First token", "Fuzzy", "New", "Errors"},
				[][]string{{itoa(t.Total), itoa(t.Exact), itoa(t.FirstToken), itoa(t.Fuzzy), itoa(t.New), itoa(t.Errors)}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showAll, "all", false, "Include exact matches in the row table")
	return cmd
}

func verdictRow(rv importer.RowVerdict) []string {
	match, score := "", ""
	if rv.Match != nil {
		match = fmt.Sprintf("%s (#%d)", rv.Match.Name, rv.Match.ID)
	}
	if rv.Score != nil {
		score = strconv.FormatFloat(*rv.Score, 'f', 4, 64)
	}
	name := rv.Name
	if rv.Message != "" {
		name = rv.Message
	}
	return []string{itoa(rv.Row), name, string(rv.Verdict), match, score}
}

func newCommitCommand(ctx *commandContext) *cobra.Command {
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "commit <kind> <file>",
		Short: "Upsert every row of a file into the catalog and link it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			rows, err := readRows(args[1])
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

			result, err := svc.Commit(reqCtx, businessId, kind, rows, importer.CommitOptions{ContinueOnError: continueOnError})
			if err != nil {
				return err
			}
			printCommitResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Record failing rows and keep going")
	return cmd
}

func printCommitResult(cmd *cobra.Command, result *importer.CommitResult) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderTable(
		[]string{"Inserted", "Updated", "Linked", "Skipped", "Errors"},
		[][]string{{itoa(result.Inserted), itoa(result.Updated), itoa(result.Linked), itoa(result.Skipped), itoa(len(result.Errors))}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(result.Errors) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, []string{itoa(e.Row), e.Message})
	}
	fmt.Fprint(out, renderTable([]string{"Row", "Error"}, rows, []columnAlignment{alignRight, alignLeft}))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
