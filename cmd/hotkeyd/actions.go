package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewActionsCmd creates the actions command, which lists what KGlobalAccel
// has stored for this application.
func NewActionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the shortcuts KGlobalAccel holds for hotkeyd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			actions, err := svc.BrokerActions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(actions) == 0 {
				fmt.Fprintln(out, "No shortcuts stored.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDESCRIPTION\tKEYS")
			for _, a := range actions {
				var keys []string
				for _, spec := range a.KeySpecs() {
					keys = append(keys, spec.String())
				}
				if len(keys) == 0 {
					keys = []string{"-"}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Description, strings.Join(keys, ", "))
			}
			return w.Flush()
		},
	}
}
