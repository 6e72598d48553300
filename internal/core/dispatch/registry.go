package dispatch

import (
	"sort"
	"sync"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
)

// Registry 处理函数注册表
type Registry struct {
	mu       sync.RWMutex
	handlers map[protocol.Tag]pkgif.Handler
}

var _ pkgif.HandlerRegistrar = (*Registry)(nil)

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[protocol.Tag]pkgif.Handler),
	}
}

// Register 注册处理函数
func (r *Registry) Register(tag protocol.Tag, h pkgif.Handler) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if h == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[tag]; exists {
		return ErrDuplicateHandler
	}
	r.handlers[tag] = h
	return nil
}

// Unregister 注销处理函数，不存在时忽略
func (r *Registry) Unregister(tag protocol.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, tag)
}

// Handler 获取处理函数
func (r *Registry) Handler(tag protocol.Tag) (pkgif.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[tag]
	return h, ok
}

// Tags 返回已注册的报文类型（有序）
func (r *Registry) Tags() []protocol.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]protocol.Tag, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
