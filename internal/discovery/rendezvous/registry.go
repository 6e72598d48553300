package rendezvous

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/dep2p/go-ringdht/internal/core/storage/kv"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
//                              注册记录
// ============================================================================

// Registration 一条 ID 分配记录
type Registration struct {
	ID   types.NodeID
	Addr types.Address

	// Seq 分配序号，最小者为根节点
	Seq uint64

	// Acked 节点是否已确认该 ID
	Acked bool

	RegisteredAt time.Time
}

// persistedRegistration 持久化格式
type persistedRegistration struct {
	ID           uint64 `json:"id"`
	Addr         string `json:"addr"`
	Seq          uint64 `json:"seq"`
	Acked        bool   `json:"acked"`
	RegisteredAt int64  `json:"registered_at"`
}

// poolMeta 池参数，重新加载时校验
type poolMeta struct {
	K      uint64 `json:"k"`
	Method int    `json:"method"`
}

var (
	keyPoolMeta = []byte("m/pool")
	prefixIDs   = []byte("i/")
)

// ============================================================================
//                              Registry
// ============================================================================

// Registry ID 池与注册表
//
// 内存索引加速查询，每次变更同步写入 kv.Store。
type Registry struct {
	mu sync.Mutex

	k      uint64
	method types.DistributionMethod
	pool   []types.NodeID

	byID    map[types.NodeID]*Registration
	byAddr  map[types.Address]types.NodeID
	nextSeq uint64

	store           *kv.Store
	resetOnMismatch bool
	rng             *rand.Rand
}

// RegistryOption 注册表选项
type RegistryOption func(*Registry)

// WithResetOnMismatch 持久化的池参数不一致时清空旧记录，而不是返回 ErrPoolMismatch
func WithResetOnMismatch() RegistryOption {
	return func(r *Registry) { r.resetOnMismatch = true }
}

// NewRegistry 创建注册表并从 store 加载已有记录
//
// store 可以为 nil（不持久化）；seed 为 0 时使用随机种子。
func NewRegistry(k uint64, method types.DistributionMethod, store *kv.Store, seed int64, opts ...RegistryOption) (*Registry, error) {
	if err := method.ValidateK(k); err != nil {
		return nil, err
	}
	s := uint64(seed)
	if seed == 0 {
		s = rand.Uint64()
	}

	r := &Registry{
		k:      k,
		method: method,
		pool:   method.Pool(k),
		byID:   make(map[types.NodeID]*Registration),
		byAddr: make(map[types.Address]types.NodeID),
		store:  store,
		rng:    rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if store != nil {
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// load 校验池参数并加载注册记录
func (r *Registry) load() error {
	current := poolMeta{K: r.k, Method: int(r.method)}

	exists, err := r.store.Has(keyPoolMeta)
	if err != nil {
		return err
	}
	if !exists {
		return r.store.PutJSON(keyPoolMeta, current)
	}

	var meta poolMeta
	if err := r.store.GetJSON(keyPoolMeta, &meta); err != nil {
		return err
	}
	if meta != current {
		if !r.resetOnMismatch {
			return fmt.Errorf("%w: stored K=%d method=%d, configured K=%d method=%d",
				ErrPoolMismatch, meta.K, meta.Method, r.k, int(r.method))
		}
		return r.reset(meta, current)
	}

	err = r.store.SubStore(prefixIDs).PrefixScan(nil, func(_, value []byte) bool {
		reg, err := decodeRegistration(value)
		if err != nil {
			log.Warn("跳过损坏的注册记录", "err", err)
			return true
		}
		r.index(reg)
		return true
	})
	if err != nil {
		return err
	}
	if len(r.byID) > 0 {
		log.Info("已加载注册记录", "count", len(r.byID))
	}
	return nil
}

// reset 丢弃旧池的注册记录并写入新的池参数
func (r *Registry) reset(old, current poolMeta) error {
	dropped, err := r.store.DeletePrefix(prefixIDs)
	if err != nil {
		return err
	}
	log.Warn("池参数已变化，丢弃旧注册记录",
		"stored_k", old.K, "stored_method", old.Method,
		"k", current.K, "method", current.Method, "dropped", dropped)
	return r.store.PutJSON(keyPoolMeta, current)
}

func decodeRegistration(value []byte) (*Registration, error) {
	var p persistedRegistration
	if err := json.Unmarshal(value, &p); err != nil {
		return nil, err
	}
	addr, err := types.ParseAddress(p.Addr)
	if err != nil {
		return nil, err
	}
	return &Registration{
		ID:           types.NodeID(p.ID),
		Addr:         addr,
		Seq:          p.Seq,
		Acked:        p.Acked,
		RegisteredAt: time.Unix(0, p.RegisteredAt),
	}, nil
}

func (r *Registry) index(reg *Registration) {
	r.byID[reg.ID] = reg
	r.byAddr[reg.Addr] = reg.ID
	if reg.Seq >= r.nextSeq {
		r.nextSeq = reg.Seq + 1
	}
}

func (r *Registry) persist(reg *Registration) error {
	if r.store == nil {
		return nil
	}
	return r.store.PutJSON(idKey(reg.ID), persistedRegistration{
		ID:           uint64(reg.ID),
		Addr:         reg.Addr.String(),
		Seq:          reg.Seq,
		Acked:        reg.Acked,
		RegisteredAt: reg.RegisteredAt.UnixNano(),
	})
}

func idKey(id types.NodeID) []byte {
	return append(append([]byte{}, prefixIDs...), id.String()...)
}

// K 返回池上界
func (r *Registry) K() uint64 { return r.k }

// Method 返回分布方式
func (r *Registry) Method() types.DistributionMethod { return r.method }

// Assign 为来源地址分配 ID
//
// 同一地址重复申请返回同一 ID；池耗尽返回 types.ErrPoolExhausted。
// 第二个返回值为当前根节点（可能就是本次分配的记录）。
func (r *Registry) Assign(addr types.Address) (Registration, Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byAddr[addr]; ok {
		root, _ := r.rootLocked()
		return *r.byID[id], root, nil
	}

	free := r.availableLocked()
	if len(free) == 0 {
		return Registration{}, Registration{}, types.ErrPoolExhausted
	}

	reg := &Registration{
		ID:           free[r.rng.IntN(len(free))],
		Addr:         addr,
		Seq:          r.nextSeq,
		RegisteredAt: time.Now(),
	}
	if err := r.persist(reg); err != nil {
		return Registration{}, Registration{}, err
	}
	r.index(reg)

	root, _ := r.rootLocked()
	return *reg, root, nil
}

// Acknowledge 标记 ID 已确认（幂等）
func (r *Registry) Acknowledge(id types.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	if reg.Acked {
		return nil
	}
	reg.Acked = true
	return r.persist(reg)
}

// Release 释放 ID 回池
//
// 若被释放的是根节点，返回新的根节点（最早的剩余注册者）。
func (r *Registry) Release(id types.NodeID) (removed Registration, promoted *Registration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[id]
	if !ok {
		return Registration{}, nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	oldRoot, _ := r.rootLocked()

	if r.store != nil {
		if err := r.store.Delete(idKey(id)); err != nil {
			return Registration{}, nil, err
		}
	}
	delete(r.byID, id)
	delete(r.byAddr, reg.Addr)

	if oldRoot.ID == id {
		if root, ok := r.rootLocked(); ok {
			promoted = &root
		}
	}
	return *reg, promoted, nil
}

// Root 返回根节点
func (r *Registry) Root() (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rootLocked()
}

func (r *Registry) rootLocked() (Registration, bool) {
	var root *Registration
	for _, reg := range r.byID {
		if root == nil || reg.Seq < root.Seq {
			root = reg
		}
	}
	if root == nil {
		return Registration{}, false
	}
	return *root, true
}

// Registrations 按分配顺序返回所有注册记录
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Registration, 0, len(r.byID))
	for _, reg := range r.byID {
		out = append(out, *reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Available 返回尚未分配的 ID（池顺序）
func (r *Registry) Available() []types.NodeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() []types.NodeID {
	free := make([]types.NodeID, 0, len(r.pool))
	for _, id := range r.pool {
		if _, used := r.byID[id]; !used {
			free = append(free, id)
		}
	}
	return free
}
