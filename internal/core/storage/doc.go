// Package storage 提供基于 BadgerDB 的键值存储
//
// 分层：
//
//	kv.Store        带前缀隔离的 KV 抽象，JSON 辅助方法
//	engine.Engine   存储引擎接口
//	engine/badger   BadgerDB 实现（磁盘或内存模式）
//
// # 键空间
//
//	前缀     | 使用方         | 说明
//	---------|----------------|------------------
//	r/i/     | Rendezvous     | 已分配的 ID 注册记录
//	r/m/     | Rendezvous     | 池元信息（K、分布方式）
//
// # 使用示例
//
//	eng, err := storage.NewEngine(cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//	registry := kv.New(eng, []byte("r/i/"))
package storage
