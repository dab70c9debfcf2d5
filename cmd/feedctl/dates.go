package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/config"
	"sgxfeed/internal/source"
)

func newDatesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "List business dates published in the feed index, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			hc := &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   cfg.Feed.FetchTimeout(),
			}
			resolver := source.NewIndexResolver(hc, cfg.Feed.IndexURL, cfg.Feed.UserAgent, source.NewLimiter(cfg.Feed.RequestsPerSecond), 0)

			dates, err := resolver.Dates(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(dates) > limit {
				dates = dates[:limit]
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), calendar.Format(d))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of dates to print (0 = all)")
	return cmd
}
