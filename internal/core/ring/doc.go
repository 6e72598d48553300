// Package ring 持有并服务本节点的 4 个环指针
//
// 指针只在 Directory 的锁内以读-改-写方式修改，对外只给出值拷贝。
// 远端通过 Request 查询字段、通过 Set 更新字段：
//
//	Request|previousID|nextAddress  →  Reply|3|127.0.0.1:9004
//	Set|nextID|5|nextAddress|127.0.0.1:9005  →  Setted
//
// Set 的更新要么全部生效，要么完全不生效。
package ring
