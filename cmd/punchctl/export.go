package main

import (
	"fmt"
	"os"
	"time"

	app "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/spf13/cobra"
)

func today() string { return time.Now().Format(model.DateLayout) }

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		filter reportFilter
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attendance records as CSV",
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

			if output == "" || output == "-" {
				if err := app.WriteCSV(cmd.OutOrStdout(), records); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				return nil
			}
			if err := writeCSVFile(output, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(records), output)
			return nil
		},
	}
	filter.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// writeCSVFile writes records to path. A failed Close is returned as an error.
func writeCSVFile(path string, records []model.AttendanceRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := app.WriteCSV(f, records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
