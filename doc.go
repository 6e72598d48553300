// Package ringdht 提供自组织的 P2P 环形 DHT 节点
//
// 节点通过 rendezvous 服务获得环上的 ID，然后把自己插入按 ID 排序的环中，
// 维护前驱、后继以及各自两跳的 4 个指针，周期性探测后继并在其失效时修复环，
// 并按一致性哈希把键路由到负责的节点。
//
// # 快速开始
//
//	import "github.com/dep2p/go-ringdht"
//
//	// 1. 启动 rendezvous（通常是独立进程）
//	rv, err := ringdht.NewRendezvous(
//	    ringdht.WithListenAddr("127.0.0.1:9000"),
//	    ringdht.WithPool(7, types.MethodLinear),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = rv.Start(ctx)
//	defer rv.Close()
//
//	// 2. 创建并启动节点，Start 返回时节点已入环
//	peer, err := ringdht.Start(ctx,
//	    ringdht.WithListenAddr("127.0.0.1:9001"),
//	    ringdht.WithRendezvousAddr("127.0.0.1:9000"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer peer.Close()
//
//	// 3. 查找键的所有者
//	owner, err := peer.Lookup(ctx, "file.txt")
//
// # 模块组成
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│  门面层        Peer / Rendezvous                                 │
//	├─────────────────────────────────────────────────────────────────┤
//	│  协议层        join · liveness · routing · rendezvous            │
//	├─────────────────────────────────────────────────────────────────┤
//	│  核心层        ring · dispatch · messaging · transport           │
//	│                lifecycle · eventbus · metrics · storage          │
//	└─────────────────────────────────────────────────────────────────┘
//
// # 致命错误
//
// 加入失败（rendezvous 不可达、ID 池耗尽、重复身份）和协议违规都是致命错误：
// Start 直接返回加入错误，运行期间的致命错误通过 Peer.Fatal() 上报，
// 调用方应关闭节点并退出。
package ringdht
