package join

import (
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
//                              插入计划
// ============================================================================

// Update 推送给一个邻居的字段更新
type Update struct {
	Addr types.Address

	// Pairs field, value 交替排列，字段按固定顺序
	Pairs []string
}

// Plan 插入或修复后的指针与需要推送的更新
type Plan struct {
	// Self 本节点的新指针
	Self types.RingPointers

	// Updates 按地址合并后的邻居更新
	Updates []Update
}

// updateSet 按地址合并字段更新，保留首次出现的地址顺序
type updateSet struct {
	order  []types.Address
	fields map[types.Address]map[types.Field]string
}

func newUpdateSet() *updateSet {
	return &updateSet{fields: make(map[types.Address]map[types.Field]string)}
}

func (u *updateSet) set(addr types.Address, f types.Field, value string) {
	m, ok := u.fields[addr]
	if !ok {
		m = make(map[types.Field]string)
		u.fields[addr] = m
		u.order = append(u.order, addr)
	}
	m[f] = value
}

func (u *updateSet) setRef(addr types.Address, idField, addrField types.Field, ref types.NodeRef) {
	u.set(addr, idField, ref.ID.String())
	u.set(addr, addrField, ref.Addr.String())
}

func (u *updateSet) build() []Update {
	out := make([]Update, 0, len(u.order))
	for _, addr := range u.order {
		m := u.fields[addr]
		pairs := make([]string, 0, 2*len(m))
		for _, f := range types.FieldOrder {
			if v, ok := m[f]; ok {
				pairs = append(pairs, string(f), v)
			}
		}
		out = append(out, Update{Addr: addr, Pairs: pairs})
	}
	return out
}

// Insertion 计算新节点 x 插入 b 之后的指针与邻居更新
//
// 单节点环（P 与 N 是同一节点）时 x 的两跳指针折回自己，
// 且只需推送给该节点。
func Insertion(x types.NodeRef, b Bracket) Plan {
	u := newUpdateSet()

	if b.P.Addr == b.N.Addr {
		r := b.P
		self := types.RingPointers{
			Self:         x,
			Prev:         r,
			PrevPrevAddr: x.Addr,
			Next:         r,
			NextNextAddr: x.Addr,
		}
		u.setRef(r.Addr, types.FieldPreviousID, types.FieldPreviousAddress, x)
		u.set(r.Addr, types.FieldPreviousPreviousAddress, r.Addr.String())
		u.setRef(r.Addr, types.FieldNextID, types.FieldNextAddress, x)
		u.set(r.Addr, types.FieldNextNextAddress, r.Addr.String())
		return Plan{Self: self, Updates: u.build()}
	}

	self := types.RingPointers{
		Self:         x,
		Prev:         b.P,
		PrevPrevAddr: b.PPAddr,
		Next:         b.N,
		NextNextAddr: b.NNAddr,
	}

	// P: next=x, nextNext=N
	u.setRef(b.P.Addr, types.FieldNextID, types.FieldNextAddress, x)
	u.set(b.P.Addr, types.FieldNextNextAddress, b.N.Addr.String())
	// PP: nextNext=x
	u.set(b.PPAddr, types.FieldNextNextAddress, x.Addr.String())
	// N: prev=x, prevPrev=P
	u.setRef(b.N.Addr, types.FieldPreviousID, types.FieldPreviousAddress, x)
	u.set(b.N.Addr, types.FieldPreviousPreviousAddress, b.P.Addr.String())
	// NN: prevPrev=x
	u.set(b.NNAddr, types.FieldPreviousPreviousAddress, x.Addr.String())

	return Plan{Self: self, Updates: u.build()}
}

// Merge 按地址合并更新，字段按固定顺序输出
//
// 同一地址的同一字段出现多次时以后出现的为准。
func Merge(updates ...Update) []Update {
	u := newUpdateSet()
	for _, up := range updates {
		for i := 0; i+1 < len(up.Pairs); i += 2 {
			u.set(up.Addr, types.Field(up.Pairs[i]), up.Pairs[i+1])
		}
	}
	return u.build()
}
