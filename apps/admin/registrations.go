package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/philosothon/philosothon/core/registration"
)

func (cli *commandLine) registrationsCmd() *cobra.Command {
	var filter registration.QueryFilter

	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "List submitted registrations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			regs, err := cli.regSvc.ListRegistrations(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tSUBMITTED\tANSWERS")
			for _, reg := range regs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", reg.ID, reg.Email, reg.SubmittedAt.Format(time.RFC3339), len(reg.Answers))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "Filter by email")
	return cmd
}
