package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/internal/domain/types"
	"github.com/spf13/cobra"
)

// reportFilter is shared by report and export.
type reportFilter struct {
	date   string
	userID string
	today  bool
}

func (f *reportFilter) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Only records of this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.userID, "user", "", "Only records of this user id")
	cmd.Flags().BoolVar(&f.today, "today", false, "Only today's records (local time)")
}

func (f *reportFilter) resolveDate(now string) string {
	if f.today && f.date == "" {
		return now
	}
	return f.date
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		filter reportFilter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show attendance records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Report(cmd.Context(), filter.resolveDate(today()), filter.userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(types.FromRecords(records))
			}
			return printRecords(cmd, records)
		},
	}
	filter.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printRecords(cmd *cobra.Command, records []model.AttendanceRecord) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tUSER ID\tNAME\tACTION\tCONFIDENCE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n", r.Date(), r.Clock(), r.UserID, r.Name, r.Action, r.Confidence)
	}
	if len(records) == 0 {
		fmt.Fprintln(tw, "no attendance records found")
	}
	return tw.Flush()
}
