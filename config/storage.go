package config

import (
	"path/filepath"
)

// StorageConfig 存储配置
//
// rendezvous 的 ID 注册表保存在 BadgerDB 中，通过 Key 前缀隔离。
//
// 数据目录结构：
//
//	${DataDir}/
//	└── ringdht.db/         # BadgerDB 主数据库
//	    ├── 000001.vlog
//	    ├── 000001.sst
//	    └── MANIFEST
type StorageConfig struct {
	// DataDir 数据目录路径
	// 为空时使用内存模式，进程退出后数据丢失
	DataDir string `json:"data_dir"`

	// SyncWrites 是否同步写入磁盘
	SyncWrites bool `json:"sync_writes"`
}

// DefaultStorageConfig 返回默认的存储配置（内存模式）
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	return nil
}

// InMemory 是否使用内存模式
func (c *StorageConfig) InMemory() bool {
	return c.DataDir == ""
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	if c.InMemory() {
		return ""
	}
	return filepath.Join(c.DataDir, "ringdht.db")
}
