package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the table's leaf-chain ordering invariant",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newEngineHandle()
			if err != nil {
				return err
			}
			defer h.Close()

			if err := h.table.Check(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
