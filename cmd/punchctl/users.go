package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/okian/facepunch/internal/domain/types"
	"github.com/spf13/cobra"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List enrolled users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			users, err := svc.Users(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				list := make([]types.User, len(users))
				for i, u := range users {
					list[i] = types.FromUser(u)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER ID\tNAME\tDEPARTMENT\tREGISTERED")
			for _, u := range users {
				dept := u.Department
				if dept == "" {
					dept = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, dept, u.RegisteredAt.Format(time.DateTime))
			}
			fmt.Fprintf(tw, "\n%d users\n", len(users))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
