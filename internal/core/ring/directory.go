package ring

import (
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("ring")

// ============================================================================
//                              Directory
// ============================================================================

// Space 环的 ID 空间参数，由 rendezvous 在引导时给出
type Space struct {
	K      uint64
	Method types.DistributionMethod
}

// Directory 环指针目录
type Directory struct {
	mu    sync.RWMutex
	ptrs  types.RingPointers
	space Space

	emitter pkgif.Emitter
}

// NewDirectory 创建目录
//
// bus 非 nil 时，每次指针变化发布 types.EvtPointersChanged（有状态）。
func NewDirectory(bus pkgif.EventBus) *Directory {
	d := &Directory{}
	if bus != nil {
		em, err := bus.Emitter(new(types.EvtPointersChanged), pkgif.Stateful())
		if err != nil {
			log.Warn("创建指针事件发射器失败", "err", err)
		} else {
			d.emitter = em
		}
	}
	return d
}

// Snapshot 返回指针快照
func (d *Directory) Snapshot() types.RingPointers {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ptrs
}

// Self 返回本节点
func (d *Directory) Self() types.NodeRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ptrs.Self
}

// SetSpace 记录 ID 空间参数
func (d *Directory) SetSpace(s Space) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.space = s
}

// Space 返回 ID 空间参数（引导完成前为零值）
func (d *Directory) Space() Space {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.space
}

// Init 以给定身份初始化为单节点环
func (d *Directory) Init(self types.NodeRef) {
	d.Update(func(p *types.RingPointers) {
		*p = types.Alone(self)
	})
}

// Reset 退化为单节点环（4 个指针都指向自己）
func (d *Directory) Reset() types.RingPointers {
	return d.Update(func(p *types.RingPointers) {
		*p = types.Alone(p.Self)
	})
}

// Update 在锁内执行读-改-写，返回修改后的快照
func (d *Directory) Update(fn func(p *types.RingPointers)) types.RingPointers {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.ptrs
	next := old
	fn(&next)
	d.commitLocked(old, next)
	return next
}

// commitLocked 提交新指针并发布变化事件
//
// 事件在锁内发布以保持顺序；总线对慢订阅者丢弃，不会阻塞。
func (d *Directory) commitLocked(old, next types.RingPointers) {
	d.ptrs = next
	if old == next {
		return
	}
	log.Debug("环指针更新",
		"self", next.Self.String(),
		"prev", next.Prev.String(),
		"prevprev", next.PrevPrevAddr.String(),
		"next", next.Next.String(),
		"nextnext", next.NextNextAddr.String())
	if d.emitter != nil {
		_ = d.emitter.Emit(types.EvtPointersChanged{Old: old, New: next, Time: time.Now()})
	}
}

// Close 关闭事件发射器
func (d *Directory) Close() error {
	d.mu.Lock()
	em := d.emitter
	d.emitter = nil
	d.mu.Unlock()
	if em != nil {
		return em.Close()
	}
	return nil
}

// ============================================================================
//                              字段查询与更新
// ============================================================================

// GetFields 按固定顺序返回被请求字段的值
//
// 未知字段名被忽略；同一字段请求多次只返回一次。
func (d *Directory) GetFields(names []string) []string {
	requested := make(map[types.Field]bool, len(names))
	for _, n := range names {
		requested[types.Field(n)] = true
	}

	snap := d.Snapshot()
	values := make([]string, 0, len(requested))
	for _, f := range types.FieldOrder {
		if !requested[f] {
			continue
		}
		v, _ := snap.Get(f)
		values = append(values, v)
	}
	return values
}

// SetFields 原子地应用字段更新
//
// pairs 为 field, value 交替排列。任一字段非法时返回包装了
// types.ErrMalformedUpdate 的错误，指针保持不变。
func (d *Directory) SetFields(pairs []string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("%w: odd number of tokens (%d)", types.ErrMalformedUpdate, len(pairs))
	}

	type assignment struct {
		field types.Field
		id    types.NodeID
		addr  types.Address
	}
	parsed := make([]assignment, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		f := types.Field(pairs[i])
		if !f.Mutable() {
			return fmt.Errorf("%w: field %q is not mutable", types.ErrMalformedUpdate, pairs[i])
		}
		a := assignment{field: f}
		if f.IsID() {
			id, err := types.ParseNodeID(pairs[i+1])
			if err != nil {
				return fmt.Errorf("%w: %s: %v", types.ErrMalformedUpdate, f, err)
			}
			a.id = id
		} else {
			addr, err := types.ParseAddress(pairs[i+1])
			if err != nil {
				return fmt.Errorf("%w: %s: %v", types.ErrMalformedUpdate, f, err)
			}
			a.addr = addr
		}
		parsed = append(parsed, a)
	}

	d.Update(func(p *types.RingPointers) {
		for _, a := range parsed {
			switch a.field {
			case types.FieldPreviousID:
				p.Prev.ID = a.id
			case types.FieldPreviousAddress:
				p.Prev.Addr = a.addr
			case types.FieldPreviousPreviousAddress:
				p.PrevPrevAddr = a.addr
			case types.FieldNextID:
				p.Next.ID = a.id
			case types.FieldNextAddress:
				p.Next.Addr = a.addr
			case types.FieldNextNextAddress:
				p.NextNextAddr = a.addr
			}
		}
	})
	return nil
}

// ============================================================================
//                              归属判定
// ============================================================================

// Owns 本节点是否拥有目标位置 target
func (d *Directory) Owns(target types.NodeID) bool {
	return Owns(d.Snapshot(), target)
}

// Owns 判定 target 是否落在 (prev.id, self.id] 内
//
// 自环或 prev.id == self.id 时拥有全部位置；self.id < prev.id 时区间跨越环的起点。
func Owns(p types.RingPointers, target types.NodeID) bool {
	self, prev := p.Self.ID, p.Prev.ID
	if p.IsAlone() || prev == self {
		return true
	}
	if prev < self {
		return target > prev && target <= self
	}
	return target > prev || target <= self
}
