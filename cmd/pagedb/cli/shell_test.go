package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/disk"
	"github.com/pagedb/pagedb/internal/engine"
	"github.com/pagedb/pagedb/internal/txns"
)

func newTestHandle() *engineHandle {
	bp := bufferpool.New(32, 2, disk.NewInMemoryManager())
	locks := txns.NewLockManager()
	table := engine.NewTable(defaultTableOID, bp, defaultFileID, locks, 4, 4)
	return &engineHandle{bp: bp, locks: locks, table: table, stopDetector: func() {}}
}

func TestShell_InsertGetScanDelete(t *testing.T) {
	h := newTestHandle()
	in := strings.NewReader("insert 1 10\ninsert 2 20\nget 1\nscan\ndelete 1\nget 1\nquit\n")
	var out bytes.Buffer

	runShell(h, in, &out)

	got := out.String()
	assert.Contains(t, got, "1 -> page 10")
	assert.Contains(t, got, "2 -> page 20")
	assert.Contains(t, got, "not found")
}
