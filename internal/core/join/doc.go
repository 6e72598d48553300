// Package join 实现节点加入环的状态机
//
// 流程：
//
//	Bootstrapping  向 rendezvous 申请并确认 ID
//	Searching      从根节点出发按放置规则逐个查询候选节点
//	Inserted       推送 4 个邻居的指针更新全部成功后进入
//
// 成为根节点时跳过 Searching，直接以单节点环进入 Inserted。
//
// 放置与插入计划是纯函数（Place / Insertion），便于单独验证；
// Pusher 负责并发推送 Set 并逐个重试，同时被失效修复复用。
package join
