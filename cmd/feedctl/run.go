package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
)

var errRunFailed = errors.New("run failed: no file stored")

func newRunCmd() *cobra.Command {
	var (
		date      string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch and store every configured file for one business date",
		Long: `Runs the ingestion pipeline once. Without --date the current business date is used.
Accepted formats: YYYY-MM-DD, DD/MM/YYYY, "DD Mon YYYY".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(outputFmt); err != nil {
				return err
			}
			var businessDate time.Time
			if date != "" {
				d, err := calendar.Parse(date)
				if err != nil {
					return err
				}
				businessDate = d
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if businessDate.IsZero() {
				businessDate = a.Ingest.CurrentBusinessDate()
			}

			report, err := a.Ingest.Run(cmd.Context(), businessDate)
			if err != nil {
				return err
			}
			if err := printReport(cmd.OutOrStdout(), outputFmt, report); err != nil {
				return err
			}
			if !report.Success && report.Counts()[model.OutcomeFailed] > 0 {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Business date (default: current business date)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func validateOutput(format string) error {
	switch format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}
