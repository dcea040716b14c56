package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagedb/pagedb/internal/stress"
	"github.com/pagedb/pagedb/internal/txns"
)

func newBenchCmd() *cobra.Command {
	var ops int
	var workers int
	var concurrency int64
	var keySpace uint64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive a concurrent load of random get/insert/delete transactions against a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newEngineHandle()
			if err != nil {
				return err
			}
			defer h.Close()

			res, err := stress.Run(context.Background(), h.table, h.locks, stress.Config{
				Workers:     workers,
				Concurrency: concurrency,
				Ops:         ops,
				KeySpace:    keySpace,
				Isolation:   txns.ReadCommitted,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "completed=%d aborted=%d inserts=%d gets=%d deletes=%d\n",
				res.Completed.Load(), res.Aborted.Load(), res.Inserts.Load(), res.Gets.Load(), res.Deletes.Load())
			return nil
		},
	}

	cmd.Flags().IntVar(&ops, "ops", 1000, "number of operations to run")
	cmd.Flags().IntVar(&workers, "workers", 16, "ants worker pool size")
	cmd.Flags().Int64Var(&concurrency, "concurrency", 16, "maximum in-flight transactions")
	cmd.Flags().Uint64Var(&keySpace, "keys", 256, "key space size (higher reduces lock contention)")
	return cmd
}
