package testutil

import (
	"context"
	"testing"
	"time"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// WaitForCondition 等待条件满足或超时
//
// 参数：
//   - t: 测试对象
//   - timeout: 超时时间
//   - interval: 检查间隔
//   - condition: 条件函数，返回 true 表示条件满足
//
// 返回：条件是否满足（超时返回 false）
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// WaitForConditionOrFail 等待条件满足，超时则 fail 测试
func WaitForConditionOrFail(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool, msg string) {
	t.Helper()

	if !WaitForCondition(t, timeout, interval, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// Eventually 在指定时间内重试条件检查
//
// 使用默认间隔 20ms。
//
// 示例:
//
//	testutil.Eventually(t, 2*time.Second, func() bool {
//	    return peer.Pointers().IsAlone()
//	}, "应该退化为单节点")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	WaitForConditionOrFail(t, timeout, 20*time.Millisecond, condition, msg)
}

// WaitForEvent 从订阅中读取下一个 T 类型的事件，超时则失败
//
// 示例:
//
//	sub, _ := peer.Subscribe(new(types.EvtSuccessorFailed))
//	evt := testutil.WaitForEvent[types.EvtSuccessorFailed](t, sub, time.Second)
func WaitForEvent[T any](t *testing.T, sub pkgif.Subscription, timeout time.Duration) T {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case evt, ok := <-sub.Out():
			if !ok {
				t.Fatal("订阅已关闭")
			}
			if e, ok := evt.(T); ok {
				return e
			}
		case <-timer.C:
			var zero T
			t.Fatalf("等待事件 %T 超时", zero)
			return zero
		}
	}
}
