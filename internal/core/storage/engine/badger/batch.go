package badger

import (
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-ringdht/internal/core/storage/engine"
)

// WriteBatch BadgerDB 批量写入
//
// Write 之后不可复用。
type WriteBatch struct {
	db     *Engine
	batch  *badger.WriteBatch
	count  atomic.Int32
	closed atomic.Bool
}

var _ engine.Batch = (*WriteBatch)(nil)

// Put 添加写入操作，错误在 Write 时返回
func (b *WriteBatch) Put(key, value []byte) {
	if b.closed.Load() || len(key) == 0 {
		return
	}
	_ = b.batch.Set(key, value)
	b.count.Add(1)
}

// Delete 添加删除操作
func (b *WriteBatch) Delete(key []byte) {
	if b.closed.Load() || len(key) == 0 {
		return
	}
	_ = b.batch.Delete(key)
	b.count.Add(1)
}

// Write 提交批量写入
func (b *WriteBatch) Write() error {
	if b.closed.Swap(true) {
		return engine.ErrBatchClosed
	}
	if b.db.closed.Load() {
		b.batch.Cancel()
		return engine.ErrClosed
	}
	return convertError(b.batch.Flush())
}

// Size 返回批量中的操作数量
func (b *WriteBatch) Size() int {
	return int(b.count.Load())
}
