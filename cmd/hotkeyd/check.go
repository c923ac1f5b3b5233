package main

import (
	"github.com/spf13/cobra"

	"github.com/TanaroSch/hotkeyd/internal/app"
)

// NewCheckCmd creates the check command.
func NewCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <keys>",
		Short: "Test whether a key combination can be registered",
		Long: `Parse a key combination, register it with the selected backend and release
it again. Exits non-zero when the combination is invalid or taken.`,
		Example: `  hotkeyd check ctrl+shift+h
  hotkeyd check --backend x11 "Meta+F12"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd, flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := app.Probe(svc, args[0])
			if err != nil {
				return err
			}
			res.Print(cmd.OutOrStdout())
			return res.Err
		},
	}
}
