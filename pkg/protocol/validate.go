package protocol

import (
	"fmt"
	"strconv"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// Expect 校验回复形状
//
// 要求首令牌为 tag，且其后恰好 n 个参数；n < 0 表示参数个数不限。
// 不符合时返回包装了 types.ErrProtocolViolation 的错误。
func Expect(reply []string, tag Tag, n int) ([]string, error) {
	if TagOf(reply) != tag {
		return nil, fmt.Errorf("%w: expected %s, got %q", types.ErrProtocolViolation, tag, reply)
	}
	args := reply[1:]
	if n >= 0 && len(args) != n {
		return nil, fmt.Errorf("%w: %s expects %d args, got %d", types.ErrProtocolViolation, tag, n, len(args))
	}
	return args, nil
}

// Assignment rendezvous 分配结果
type Assignment struct {
	// ID 分配的节点 ID
	ID types.NodeID

	// IsRoot 申请者是否成为根节点
	IsRoot bool

	// RootAddr 根节点地址（IsRoot 时为空）
	RootAddr types.Address

	// K ID 池上界
	K uint64

	// Method ID 分布方式
	Method types.DistributionMethod
}

// ParseAssigned 解析 ID|id|root-或-rootAddr|K|method
func ParseAssigned(reply []string) (Assignment, error) {
	if TagOf(reply) == Full {
		return Assignment{}, types.ErrPoolExhausted
	}
	args, err := Expect(reply, Assigned, 4)
	if err != nil {
		return Assignment{}, err
	}

	var a Assignment
	if a.ID, err = types.ParseNodeID(args[0]); err != nil {
		return Assignment{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	if args[1] == RootMarker {
		a.IsRoot = true
	} else if a.RootAddr, err = types.ParseAddress(args[1]); err != nil {
		return Assignment{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	if a.K, err = strconv.ParseUint(args[2], 10, 64); err != nil {
		return Assignment{}, fmt.Errorf("%w: bad K %q", types.ErrProtocolViolation, args[2])
	}
	if a.Method, err = types.ParseDistributionMethod(args[3]); err != nil {
		return Assignment{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	return a, nil
}

// FoundResult Found 报文内容
type FoundResult struct {
	CorrID string
	Owner  types.NodeRef
}

// ParseFound 解析 Found|corrId|ownerAddr|ownerId
func ParseFound(payload []string) (FoundResult, error) {
	args, err := Expect(payload, Found, 3)
	if err != nil {
		return FoundResult{}, err
	}
	addr, err := types.ParseAddress(args[1])
	if err != nil {
		return FoundResult{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	id, err := types.ParseNodeID(args[2])
	if err != nil {
		return FoundResult{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	return FoundResult{CorrID: args[0], Owner: types.NodeRef{ID: id, Addr: addr}}, nil
}

// SearchQuery Search 报文内容
type SearchQuery struct {
	Target types.NodeID
	Origin types.Address
	CorrID string
}

// ParseSearch 解析 Search|T|origAddr|corrId
func ParseSearch(payload []string) (SearchQuery, error) {
	args, err := Expect(payload, Search, 3)
	if err != nil {
		return SearchQuery{}, err
	}
	target, err := types.ParseNodeID(args[0])
	if err != nil {
		return SearchQuery{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	origin, err := types.ParseAddress(args[1])
	if err != nil {
		return SearchQuery{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	if args[2] == "" {
		return SearchQuery{}, fmt.Errorf("%w: empty correlation id", types.ErrProtocolViolation)
	}
	return SearchQuery{Target: target, Origin: origin, CorrID: args[2]}, nil
}
