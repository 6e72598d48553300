// Package interfaces 定义 go-ringdht 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - transport.go  - 数据报传输（internal/core/transport/{udp,memory}）
//   - messaging.go  - 关联请求/回复（internal/core/messaging）
//   - dispatch.go   - 入站报文分发（internal/core/dispatch）
//   - eventbus.go   - 事件总线（internal/core/eventbus）
//
// 本包只依赖 pkg/types 与 pkg/protocol。
package interfaces
