package btree

import (
	"fmt"

	"github.com/pagedb/pagedb/internal/common"
)

// Check walks the leaf chain in order and verifies every key is strictly
// greater than the one before it, the way a `check` CLI verb would sanity
// a tree on disk without trusting the insert/delete paths that built it.
func (t *Tree[K]) Check() error {
	t.mu.Lock()
	if t.rootPageID == common.InvalidPageID {
		t.mu.Unlock()
		return nil
	}
	it := t.beginLocked()
	t.mu.Unlock()
	defer it.Close()

	var prev K
	first := true
	for it.Valid() {
		k, _ := it.Entry()
		if !first && !(prev < k) {
			return fmt.Errorf("btree: leaf chain out of order: %v before %v", prev, k)
		}
		prev = k
		first = false
		it.Next()
	}
	return nil
}
