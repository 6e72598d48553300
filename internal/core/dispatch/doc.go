// Package dispatch 按报文类型把入站请求分发给处理函数
//
// 所有需要回复的入站报文都由唯一的 Worker 串行处理，
// 处理函数之间因此无需额外同步；处理函数不得阻塞在出站请求上。
//
// 使用方式：
//
//	registry := dispatch.NewRegistry()
//	registry.Register(protocol.Ping, func(ctx context.Context, env *protocol.Envelope) {
//	    messenger.Reply(env, protocol.Single(protocol.Pinged))
//	})
//	worker := dispatch.NewWorker(registry, service.Inbound())
//	worker.Start()
package dispatch
