package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) verifyLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verifyledger",
		Short: "Recompute every block hash and check the chain links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.services.Ledger.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Valid {
				return errors.Errorf("ledger invalid: %s", res.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ledger valid: %d block(s)\n", res.Height)
			return nil
		},
	}
}
