package join

import (
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
//                              放置规则
// ============================================================================

// Decision 对候选节点的判定
type Decision int

const (
	// DecideAdvance 继续查询下一个候选节点
	DecideAdvance Decision = iota

	// DecideInsert 找到插入位置
	DecideInsert

	// DecideDuplicate 候选节点与新节点 ID 相同
	DecideDuplicate
)

// String 返回判定字符串表示
func (d Decision) String() string {
	switch d {
	case DecideAdvance:
		return "advance"
	case DecideInsert:
		return "insert"
	case DecideDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Bracket 插入位置：新节点位于 P 与 N 之间
type Bracket struct {
	// P 前驱
	P types.NodeRef

	// PPAddr P 的前驱地址
	PPAddr types.Address

	// N 后继
	N types.NodeRef

	// NNAddr N 的后继地址
	NNAddr types.Address
}

// Place 对候选节点 c 应用放置规则
//
//   - c.id < x：c 的后继 id 大于 x，或 c 为环上最大（后继 id <= c.id）时插在 c 之后，否则前进到 c 的后继
//   - c.id > x：对称地检查 c 的前驱
//   - c.id == x：重复身份
//
// 判定为 DecideAdvance 时 next 为下一个候选地址。
func Place(x types.NodeID, c types.RingPointers) (d Decision, next types.Address, b Bracket) {
	self := c.Self
	switch {
	case self.ID == x:
		return DecideDuplicate, types.Address{}, Bracket{}

	case self.ID < x:
		if c.Next.ID > x || c.Next.ID <= self.ID {
			return DecideInsert, types.Address{}, Bracket{
				P:      self,
				PPAddr: c.Prev.Addr,
				N:      c.Next,
				NNAddr: c.NextNextAddr,
			}
		}
		return DecideAdvance, c.Next.Addr, Bracket{}

	default:
		if c.Prev.ID < x || c.Prev.ID >= self.ID {
			return DecideInsert, types.Address{}, Bracket{
				P:      c.Prev,
				PPAddr: c.PrevPrevAddr,
				N:      self,
				NNAddr: c.Next.Addr,
			}
		}
		return DecideAdvance, c.Prev.Addr, Bracket{}
	}
}
