package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campingcare/internal/app"
	"campingcare/internal/domain"
)

type runLister interface {
	ImportRuns(ctx context.Context, spreadsheetID string, limit int) ([]domain.ImportRun, error)
}

type deps struct {
	imports *app.ImportService
	runs    runLister // nil when MySQL is unavailable
	close   func()
}

type builder func(ctx context.Context, workers int) (*deps, error)

func newRootCmd(build builder) *cobra.Command {
	var (
		spreadsheet string
		sheet       string
		workers     int
		limit       int
		d           *deps
	)

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Reconcile a bookings sheet with Camping Care",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if spreadsheet == "" {
				return domain.Required("spreadsheet")
			}
			var err error
			d, err = build(cmd.Context(), workers)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&spreadsheet, "spreadsheet", "s", "", "Google spreadsheet id")
	root.PersistentFlags().StringVar(&sheet, "sheet", app.DefaultSheetName, "sheet (tab) name")

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the rows whose Imported flag is not set, one JSON object per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := d.imports.GetSheetWithFilter(cmd.Context(), spreadsheet, sheet)
			if err != nil {
				return err
			}
			return writeLines(cmd.OutOrStdout(), res.Items())
		},
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Write \"pending\" into the Result column of every unimported row",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := d.imports.SetResultToPending(cmd.Context(), spreadsheet, sheet)
			if err != nil {
				return err
			}
			return writeLines(cmd.OutOrStdout(), res.Items())
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create a reservation per unimported row, then mark the booked rows pending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := d.imports.ImportReservations(cmd.Context(), spreadsheet, sheet)
			if err != nil {
				return err
			}
			failed := 0
			for _, o := range rep.Outcomes {
				if o.Error != "" {
					failed++
				}
			}
			log.Info().
				Int("checked", rep.RowsChecked).
				Int("booked", len(rep.Pending)).
				Int("failed", failed).
				Msg("import completed")
			if err := writeLines(cmd.OutOrStdout(), []any{rep}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rows failed", failed, len(rep.Outcomes))
			}
			return nil
		},
	}
	importCmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent reservation requests (default IMPORT_WORKERS)")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs for the spreadsheet, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if d.runs == nil {
				return errors.New("run history needs MySQL")
			}
			runs, err := d.runs.ImportRuns(cmd.Context(), spreadsheet, limit)
			if err != nil {
				return err
			}
			items := make([]any, 0, len(runs))
			for _, r := range runs {
				items = append(items, r)
			}
			return writeLines(cmd.OutOrStdout(), items)
		},
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	root.AddCommand(extractCmd, pendingCmd, importCmd, runsCmd)
	return root
}

// run executes the command line and releases whatever the builder opened,
// also when the command fails.
func run(ctx context.Context, args []string, out io.Writer, build builder) error {
	var opened *deps
	root := newRootCmd(func(ctx context.Context, workers int) (*deps, error) {
		d, err := build(ctx, workers)
		opened = d
		return d, err
	})
	root.SetArgs(args)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	if opened != nil && opened.close != nil {
		opened.close()
	}
	return err
}

func writeLines(w io.Writer, items []any) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
