// Package transport 实现数据报传输层
//
// 环协议只需要无连接、无序、可能丢失的数据报语义：
//
//   - udp:    基于 net.UDPConn 的真实传输（生产环境）
//   - memory: 进程内模拟网络，支持节点失效与丢包规则（测试）
//
// 两种实现都满足 pkg/interfaces.Transport。
//
// # Fx 模块集成
//
//	app := fx.New(
//	    fx.Supply(fx.Annotated{Name: "listen_addr", Target: "127.0.0.1:9001"}),
//	    transport.Module(),
//	    fx.Invoke(func(t pkgif.Transport) {
//	        // ...
//	    }),
//	)
//
// 通过带名字 "transport_override" 的实例可替换默认的 UDP 传输，
// 测试中用它注入 memory.Endpoint。
package transport
