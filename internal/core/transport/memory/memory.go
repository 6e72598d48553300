// Package memory 实现进程内模拟数据报网络
//
// 用于在单进程内运行多个环节点的测试：
//
//	net := memory.NewNetwork()
//	a, _ := net.Listen(types.NewAddress("10.0.0.1", 9001))
//	b, _ := net.Listen(types.NewAddress("10.0.0.2", 0)) // 自动分配端口
//
//	net.Kill(b.LocalAddr())                    // b 失效：收发全部丢失
//	net.SetDropRule(func(from, to types.Address) bool { ... })
//
// 与 UDP 一致，写往未知或失效端点的数据报静默丢失。
package memory

import (
	"errors"
	"fmt"
	"sync"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// DefaultInboxSize 每个端点的接收缓冲（数据报个数）
const DefaultInboxSize = 1024

// ErrAddressInUse 地址已被占用
var ErrAddressInUse = errors.New("address already in use")

// DropRule 返回 true 表示丢弃 from→to 的数据报
type DropRule func(from, to types.Address) bool

type datagram struct {
	from types.Address
	data []byte
}

// Network 模拟网络
type Network struct {
	mu        sync.RWMutex
	endpoints map[types.Address]*Endpoint
	dead      map[types.Address]bool
	drop      DropRule
	nextPort  int
}

// NewNetwork 创建模拟网络
func NewNetwork() *Network {
	return &Network{
		endpoints: make(map[types.Address]*Endpoint),
		dead:      make(map[types.Address]bool),
		nextPort:  20000,
	}
}

// Listen 在模拟网络上注册端点
//
// Host 为空时使用 127.0.0.1，Port 为 0 时自动分配。
func (n *Network) Listen(addr types.Address) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if addr.Host == "" {
		addr.Host = "127.0.0.1"
	}
	if addr.Port == 0 {
		for {
			n.nextPort++
			candidate := types.Address{Host: addr.Host, Port: n.nextPort}
			if _, used := n.endpoints[candidate]; !used {
				addr = candidate
				break
			}
		}
	}
	if _, used := n.endpoints[addr]; used {
		return nil, fmt.Errorf("%w: %s", ErrAddressInUse, addr)
	}

	ep := &Endpoint{
		net:    n,
		addr:   addr,
		inbox:  make(chan datagram, DefaultInboxSize),
		closed: make(chan struct{}),
	}
	n.endpoints[addr] = ep
	return ep, nil
}

// Kill 让端点失效：发往它和由它发出的数据报全部丢失
func (n *Network) Kill(addr types.Address) {
	n.mu.Lock()
	n.dead[addr] = true
	n.mu.Unlock()
}

// Revive 恢复失效的端点
func (n *Network) Revive(addr types.Address) {
	n.mu.Lock()
	delete(n.dead, addr)
	n.mu.Unlock()
}

// SetDropRule 设置丢包规则，nil 表示不丢包
func (n *Network) SetDropRule(rule DropRule) {
	n.mu.Lock()
	n.drop = rule
	n.mu.Unlock()
}

func (n *Network) deliver(from, to types.Address, b []byte) {
	n.mu.RLock()
	ep := n.endpoints[to]
	lost := n.dead[from] || n.dead[to] || (n.drop != nil && n.drop(from, to))
	n.mu.RUnlock()

	if ep == nil || lost {
		return
	}

	data := make([]byte, len(b))
	copy(data, b)

	select {
	case <-ep.closed:
	case ep.inbox <- datagram{from: from, data: data}:
	default:
		// 接收缓冲满，与 UDP 一样丢弃
	}
}

func (n *Network) remove(addr types.Address) {
	n.mu.Lock()
	delete(n.endpoints, addr)
	n.mu.Unlock()
}

// ============================================================================
//                              Endpoint
// ============================================================================

// Endpoint 模拟网络上的一个端点
type Endpoint struct {
	net       *Network
	addr      types.Address
	inbox     chan datagram
	closed    chan struct{}
	closeOnce sync.Once
}

var _ pkgif.Transport = (*Endpoint)(nil)

// ReadFrom 阻塞读取一个数据报
func (e *Endpoint) ReadFrom(buf []byte) (int, types.Address, error) {
	select {
	case <-e.closed:
		return 0, types.Address{}, types.ErrServiceClosed
	case d := <-e.inbox:
		n := copy(buf, d.data)
		return n, d.from, nil
	}
}

// WriteTo 发送一个数据报
func (e *Endpoint) WriteTo(b []byte, to types.Address) error {
	select {
	case <-e.closed:
		return types.ErrServiceClosed
	default:
	}
	e.net.deliver(e.addr, to, b)
	return nil
}

// LocalAddr 返回端点地址
func (e *Endpoint) LocalAddr() types.Address {
	return e.addr
}

// Close 关闭端点并从网络注销
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.net.remove(e.addr)
	})
	return nil
}
