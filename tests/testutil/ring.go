package testutil

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// AssertRing 检查一组节点的指针快照构成一个按 ID 排序的环
//
// 第 i 个节点（按 ID 升序）的 next 是 i+1，nextNext 是 i+2，prev 与 prevPrev 对称，下标取模。
func AssertRing(t *testing.T, snapshots []types.RingPointers) bool {
	t.Helper()

	sorted := append([]types.RingPointers(nil), snapshots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Self.ID < sorted[j].Self.ID })

	n := len(sorted)
	at := func(i int) types.NodeRef { return sorted[((i%n)+n)%n].Self }

	ok := true
	for i, p := range sorted {
		id := p.Self.ID
		ok = assert.Equal(t, at(i+1), p.Next, "node %d next", id) && ok
		ok = assert.Equal(t, at(i-1), p.Prev, "node %d prev", id) && ok
		ok = assert.Equal(t, at(i+2).Addr, p.NextNextAddr, "node %d nextNext", id) && ok
		ok = assert.Equal(t, at(i-2).Addr, p.PrevPrevAddr, "node %d prevPrev", id) && ok
	}
	return ok
}
