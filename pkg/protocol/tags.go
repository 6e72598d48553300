package protocol

import (
	"github.com/dep2p/go-ringdht/pkg/types"
)

// Tag 报文首个令牌，决定报文类型
type Tag string

// ============================================================================
//                           Rendezvous 协议
// ============================================================================

const (
	// Hello 向 rendezvous 申请 ID
	Hello Tag = "hello"

	// Assigned rendezvous 分配 ID 的回复
	Assigned Tag = "ID"

	// Acknowledge 确认分配（请求与回复同名）
	Acknowledge Tag = "ACK"

	// Removed 通知 rendezvous 某个 ID 已失效
	Removed Tag = "Removed"

	// Full ID 池已耗尽
	Full Tag = "Full"
)

// RootMarker Assigned 回复中表示"你就是根节点"的字面量
const RootMarker = "root"

// ============================================================================
//                           环协议
// ============================================================================

const (
	// Request 查询指针字段
	Request Tag = "Request"

	// Reply Request 的回复
	Reply Tag = "Reply"

	// Set 更新指针字段
	Set Tag = "Set"

	// Setted Set 的确认
	Setted Tag = "Setted"

	// Ping 存活探测
	Ping Tag = "Ping"

	// Pinged Ping 的回复
	Pinged Tag = "Pinged"

	// Search 按位置查找所有者（逐跳转发）
	Search Tag = "Search"

	// Found 所有者直接回给发起方
	Found Tag = "Found"

	// Ack 通用确认
	Ack Tag = "Ack"
)

// ============================================================================
//                           报文构造
// ============================================================================

// HelloMsg 构造 hello
func HelloMsg() []string {
	return []string{string(Hello)}
}

// AssignedMsg 构造 ID 分配回复
//
// rootAddr 为空表示申请者成为根节点。
func AssignedMsg(id types.NodeID, rootAddr types.Address, k uint64, method types.DistributionMethod) []string {
	root := RootMarker
	if !rootAddr.IsZero() {
		root = rootAddr.String()
	}
	return []string{string(Assigned), id.String(), root, uitoa(k), itoa(int(method))}
}

// AcknowledgeMsg 构造 ACK|id
func AcknowledgeMsg(id types.NodeID) []string {
	return []string{string(Acknowledge), id.String()}
}

// RemovedMsg 构造 Removed|id
func RemovedMsg(id types.NodeID) []string {
	return []string{string(Removed), id.String()}
}

// RequestMsg 构造 Request|field...
func RequestMsg(fields ...types.Field) []string {
	msg := make([]string, 0, len(fields)+1)
	msg = append(msg, string(Request))
	for _, f := range fields {
		msg = append(msg, string(f))
	}
	return msg
}

// ReplyMsg 构造 Reply|value...
func ReplyMsg(values []string) []string {
	return append([]string{string(Reply)}, values...)
}

// SetMsg 构造 Set|field|value...
func SetMsg(pairs []string) []string {
	return append([]string{string(Set)}, pairs...)
}

// PingMsg 构造 Ping
func PingMsg() []string {
	return []string{string(Ping)}
}

// SearchMsg 构造 Search|T|origAddr|corrId
func SearchMsg(target types.NodeID, origin types.Address, corrID string) []string {
	return []string{string(Search), target.String(), origin.String(), corrID}
}

// FoundMsg 构造 Found|corrId|ownerAddr|ownerId
func FoundMsg(corrID string, owner types.NodeRef) []string {
	return []string{string(Found), corrID, owner.Addr.String(), owner.ID.String()}
}

// Single 构造只有一个令牌的报文（Setted / Pinged / Ack / Full）
func Single(tag Tag) []string {
	return []string{string(tag)}
}
