// Package metrics 提供环节点的 Prometheus 指标
//
// Collector 注册在每个节点私有的 prometheus.Registerer 上，
// 同一进程内运行多个节点时互不冲突。
//
// # 指标
//
//	<ns>_datagrams_total{direction}         收发数据报数
//	<ns>_bytes_total{direction}             收发字节数
//	<ns>_requests_total{tag}                发出的关联请求
//	<ns>_request_timeouts_total{tag}        关联请求超时
//	<ns>_stale_replies_total                丢弃的过期回复
//	<ns>_inbound_dropped_total              入站队列满时丢弃的报文
//	<ns>_malformed_set_total                解析失败的 Set
//	<ns>_repairs_total{result}              环修复次数
//	<ns>_lookups_total{result}              键查找结果
//	<ns>_join_duration_seconds              加入耗时
//
// Collector 的方法对 nil 接收者安全，单元测试可以直接传 nil。
package metrics
