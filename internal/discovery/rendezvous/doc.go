// Package rendezvous 实现 rendezvous 引导服务的两端
//
// Client 运行在环节点上，用于申请 ID、确认 ID 与释放失效节点的 ID：
//
//	hello           →  ID|<id>|<root 或根节点地址>|<K>|<method>   （池耗尽时回复 Full）
//	ACK|<id>        →  ACK|<id>
//	Removed|<id>    →  Ack
//
// hello 与 ACK 按翻倍等待重试：首次等待 200ms，每次未应答翻倍，
// 翻倍后超过上限（默认 10s）即返回 types.ErrTransportTimeout。
//
// Point 是 rendezvous 服务端：维护 K+1 个 ID 的池，随机分配，
// 同一来源地址重复 hello 返回同一 ID，最早的注册者为根节点；
// 注册表通过 storage/kv 持久化在 BadgerDB 中。
package rendezvous
