package types

import (
	"fmt"
	"strconv"
)

// ============================================================================
//                              NodeID - 环上位置
// ============================================================================

// NodeID 节点标识，同时也是环上的位置
//
// 在一个环实例内唯一，取自大小为 K+1 的 ID 池。
type NodeID uint64

// String 返回十进制表示
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseNodeID 解析十进制 NodeID
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return NodeID(v), nil
}

// ============================================================================
//                              DistributionMethod - ID 分布方式
// ============================================================================

// DistributionMethod ID 分布方式，在 rendezvous 启动时固定
type DistributionMethod int

const (
	// MethodLinear 线性分布：ID 取 [0, K]
	MethodLinear DistributionMethod = 1

	// MethodPowerOfTwo 2 的幂分布：ID 取 2^0 .. 2^K
	MethodPowerOfTwo DistributionMethod = 2
)

// MaxPowerOfTwoK 2 的幂分布下 K 的上限（2^63 仍可用 uint64 表示）
const MaxPowerOfTwoK = 63

// String 返回分布方式名称
func (m DistributionMethod) String() string {
	switch m {
	case MethodLinear:
		return "linear"
	case MethodPowerOfTwo:
		return "power-of-two"
	default:
		return "unknown(" + strconv.Itoa(int(m)) + ")"
	}
}

// Valid 检查分布方式是否有效
func (m DistributionMethod) Valid() bool {
	return m == MethodLinear || m == MethodPowerOfTwo
}

// ParseDistributionMethod 解析分布方式（"1" / "2"）
func ParseDistributionMethod(s string) (DistributionMethod, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid distribution method %q: %w", s, err)
	}
	m := DistributionMethod(v)
	if !m.Valid() {
		return 0, fmt.Errorf("invalid distribution method %q: must be 1 or 2", s)
	}
	return m, nil
}

// ValidateK 检查 K 在该分布方式下是否可表示
func (m DistributionMethod) ValidateK(k uint64) error {
	if !m.Valid() {
		return fmt.Errorf("invalid distribution method %d", int(m))
	}
	if m == MethodPowerOfTwo && k > MaxPowerOfTwoK {
		return fmt.Errorf("K=%d too large for power-of-two ids (max %d)", k, MaxPowerOfTwoK)
	}
	return nil
}

// Pool 返回该分布方式下全部 K+1 个 ID（升序）
func (m DistributionMethod) Pool(k uint64) []NodeID {
	ids := make([]NodeID, 0, k+1)
	for i := uint64(0); i <= k; i++ {
		ids = append(ids, m.At(i))
	}
	return ids
}

// At 返回池中第 i 个 ID
//
// 线性分布返回 i，2 的幂分布返回 2^i。
func (m DistributionMethod) At(i uint64) NodeID {
	if m == MethodPowerOfTwo {
		return NodeID(uint64(1) << i)
	}
	return NodeID(i)
}
