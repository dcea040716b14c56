package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/engine"
	"github.com/pagedb/pagedb/internal/txns"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive REPL over a table (get/insert/delete/scan), one auto-committed transaction per command",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newEngineHandle()
			if err != nil {
				return err
			}
			defer h.Close()

			runShell(h, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func runShell(h *engineHandle, in interface {
	Read(p []byte) (int, error)
}, out interface {
	Write(p []byte) (int, error)
}) {
	var nextTxnID atomic.Int64
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "pagedb shell; commands: get <key> | insert <key> <value> | delete <key> | scan | quit")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "quit", "exit":
			return
		case "get":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: get <key>")
				continue
			}
			runOne(h, &nextTxnID, out, func(txn *engine.Txn) error {
				key, err := strconv.ParseUint(fields[1], 10, 64)
				if err != nil {
					return err
				}
				v, found, err := h.table.Get(txn, key)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(out, "not found")
					return nil
				}
				fmt.Fprintf(out, "%d -> page %d\n", key, v.PageID)
				return nil
			})
		case "insert":
			if len(fields) < 3 {
				fmt.Fprintln(out, "usage: insert <key> <value>")
				continue
			}
			runOne(h, &nextTxnID, out, func(txn *engine.Txn) error {
				key, err := strconv.ParseUint(fields[1], 10, 64)
				if err != nil {
					return err
				}
				value, err := strconv.ParseUint(fields[2], 10, 64)
				if err != nil {
					return err
				}
				ok, err := h.table.Insert(txn, key, common.RID{PageID: common.PageID(value)})
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "key already present")
				}
				return nil
			})
		case "delete":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: delete <key>")
				continue
			}
			runOne(h, &nextTxnID, out, func(txn *engine.Txn) error {
				key, err := strconv.ParseUint(fields[1], 10, 64)
				if err != nil {
					return err
				}
				ok, err := h.table.Delete(txn, key)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "key not present")
				}
				return nil
			})
		case "scan":
			runOne(h, &nextTxnID, out, func(txn *engine.Txn) error {
				return h.table.Scan(txn, func(r engine.ScanResult) bool {
					fmt.Fprintf(out, "%d -> page %d\n", r.Key, r.Value.PageID)
					return true
				})
			})
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}
}

func runOne(h *engineHandle, nextTxnID *atomic.Int64, out interface {
	Write(p []byte) (int, error)
}, fn func(*engine.Txn) error) {
	id := common.TxnID(nextTxnID.Add(1))
	txn := engine.BeginTxn(h.locks, id, txns.ReadCommitted)

	if err := fn(txn); err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	if err := txn.Commit(); err != nil {
		fmt.Fprintln(out, "commit error:", err)
	}
}
