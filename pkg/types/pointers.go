package types

// ============================================================================
//                              Field - 指针字段名
// ============================================================================

// Field 可查询的指针字段名（线上使用的字面量）
type Field string

const (
	FieldAddress                 Field = "address"
	FieldID                      Field = "id"
	FieldPreviousID              Field = "previousID"
	FieldPreviousAddress         Field = "previousAddress"
	FieldPreviousPreviousAddress Field = "previousPreviousAddress"
	FieldNextID                  Field = "nextID"
	FieldNextAddress             Field = "nextAddress"
	FieldNextNextAddress         Field = "nextNextAddress"
)

// FieldOrder 回复中字段的固定顺序
var FieldOrder = []Field{
	FieldAddress,
	FieldID,
	FieldPreviousID,
	FieldPreviousAddress,
	FieldPreviousPreviousAddress,
	FieldNextID,
	FieldNextAddress,
	FieldNextNextAddress,
}

// Mutable 是否可通过 Set 修改（address 与 id 不可修改）
func (f Field) Mutable() bool {
	switch f {
	case FieldPreviousID, FieldPreviousAddress, FieldPreviousPreviousAddress,
		FieldNextID, FieldNextAddress, FieldNextNextAddress:
		return true
	default:
		return false
	}
}

// IsID 字段值是否为 NodeID（其余为地址）
func (f Field) IsID() bool {
	return f == FieldID || f == FieldPreviousID || f == FieldNextID
}

// Known 是否为已知字段
func (f Field) Known() bool {
	for _, k := range FieldOrder {
		if k == f {
			return true
		}
	}
	return false
}

// ============================================================================
//                              RingPointers - 环指针快照
// ============================================================================

// RingPointers 节点的 4 个邻居指针
//
// 由各节点独占，只能在 ring.Directory 的锁内修改；
// 对外只传递值拷贝。
type RingPointers struct {
	// Self 本节点
	Self NodeRef

	// Prev 前驱
	Prev NodeRef

	// PrevPrevAddr 前驱的前驱地址（两跳缓存）
	PrevPrevAddr Address

	// Next 后继
	Next NodeRef

	// NextNextAddr 后继的后继地址（两跳缓存）
	NextNextAddr Address
}

// Alone 返回只有自己的环（4 个指针都指向自己）
func Alone(self NodeRef) RingPointers {
	return RingPointers{
		Self:         self,
		Prev:         self,
		PrevPrevAddr: self.Addr,
		Next:         self,
		NextNextAddr: self.Addr,
	}
}

// IsAlone 后继是否就是自己
func (p RingPointers) IsAlone() bool {
	return p.Next.Addr == p.Self.Addr
}

// Get 按字段名读取值（线上字符串形式）
func (p RingPointers) Get(f Field) (string, bool) {
	switch f {
	case FieldAddress:
		return p.Self.Addr.String(), true
	case FieldID:
		return p.Self.ID.String(), true
	case FieldPreviousID:
		return p.Prev.ID.String(), true
	case FieldPreviousAddress:
		return p.Prev.Addr.String(), true
	case FieldPreviousPreviousAddress:
		return p.PrevPrevAddr.String(), true
	case FieldNextID:
		return p.Next.ID.String(), true
	case FieldNextAddress:
		return p.Next.Addr.String(), true
	case FieldNextNextAddress:
		return p.NextNextAddr.String(), true
	default:
		return "", false
	}
}
