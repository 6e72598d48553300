package ring

import (
	"context"
	"fmt"
	"time"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// pointerFields QueryPointers 请求的字段（固定顺序，不含 address）
var pointerFields = []types.Field{
	types.FieldID,
	types.FieldPreviousID,
	types.FieldPreviousAddress,
	types.FieldPreviousPreviousAddress,
	types.FieldNextID,
	types.FieldNextAddress,
	types.FieldNextNextAddress,
}

// Query 向远端节点发送 Request 并校验回复
//
// fields 须按固定顺序给出；回复值个数不符时返回 types.ErrProtocolViolation。
func Query(ctx context.Context, m pkgif.Messenger, dst types.Address, timeout time.Duration, fields ...types.Field) ([]string, error) {
	reply, err := m.SendRequest(ctx, protocol.RequestMsg(fields...), dst, timeout)
	if err != nil {
		return nil, err
	}
	return protocol.Expect(reply, protocol.Reply, len(fields))
}

// QueryPointers 查询远端节点的全部指针
//
// Self.Addr 取查询地址本身。
func QueryPointers(ctx context.Context, m pkgif.Messenger, dst types.Address, timeout time.Duration) (types.RingPointers, error) {
	values, err := Query(ctx, m, dst, timeout, pointerFields...)
	if err != nil {
		return types.RingPointers{}, err
	}

	p := types.RingPointers{Self: types.NodeRef{Addr: dst}}
	ids := []*types.NodeID{&p.Self.ID, &p.Prev.ID, &p.Next.ID}
	addrs := []*types.Address{&p.Prev.Addr, &p.PrevPrevAddr, &p.Next.Addr, &p.NextNextAddr}
	idValues := []string{values[0], values[1], values[4]}
	addrValues := []string{values[2], values[3], values[5], values[6]}

	for i, v := range idValues {
		if *ids[i], err = types.ParseNodeID(v); err != nil {
			return types.RingPointers{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
		}
	}
	for i, v := range addrValues {
		if *addrs[i], err = types.ParseAddress(v); err != nil {
			return types.RingPointers{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
		}
	}
	return p, nil
}

// QuerySuccessor 查询远端节点的 id 与后继地址
func QuerySuccessor(ctx context.Context, m pkgif.Messenger, dst types.Address, timeout time.Duration) (types.NodeID, types.Address, error) {
	values, err := Query(ctx, m, dst, timeout, types.FieldID, types.FieldNextAddress)
	if err != nil {
		return 0, types.Address{}, err
	}
	id, err := types.ParseNodeID(values[0])
	if err != nil {
		return 0, types.Address{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	next, err := types.ParseAddress(values[1])
	if err != nil {
		return 0, types.Address{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	return id, next, nil
}
