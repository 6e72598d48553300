// Package routing 实现键到环位置的映射与查找
//
// 查找流程：
//
//	Lookup(key) → Hash → 本地拥有则直接返回
//	            → 否则沿前驱（T < self）或后继（T > self）转发 Search
//	            → 所有者直接向发起者发送 Found，发起者回复 Ack
//
// 每次尝试使用新的关联 ID；超时后重试，超过次数返回 types.ErrLookupFailed。
package routing

import (
	"math/big"

	"github.com/minio/sha256-simd"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// Hash 把键映射到环位置
//
// SHA-256 摘要按大端整数对 K+1 取模；2 的幂分布下取 2 的该次幂。
// 结果不一定是存活节点的 ID。
func Hash(key string, k uint64, method types.DistributionMethod) types.NodeID {
	sum := sha256.Sum256([]byte(key))
	n := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Add(new(big.Int).SetUint64(k), big.NewInt(1))
	r := n.Mod(n, mod).Uint64()
	return method.At(r)
}
