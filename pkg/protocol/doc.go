// Package protocol 定义 go-ringdht 的线上协议
//
// 所有报文都是 '|' 分隔的 ASCII 令牌，承载在 UDP 数据报上。
// 节点间的每个报文都带有关联前缀：
//
//	<needsReply:true|false>|<messageID>|<tag>|<arg>|<arg>...
//
// # 消息一览
//
//	hello                          → ID|id|root-或-rootAddr|K|method（池耗尽时 Full）
//	ACK|id                         → ACK|id
//	Removed|id                     → Ack
//	Request|f1|f2...               → Reply|v1|v2...（仅请求字段，固定顺序）
//	Set|field|value...             → Setted
//	Ping                           → Pinged
//	Search|T|origAddr|corrId       → 无直接回复，所有者向 origAddr 发送 Found
//	Found|corrId|ownerAddr|ownerId → Ack
//
// 令牌本身不能包含 '|'。
package protocol
