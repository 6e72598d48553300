package rendezvous

import "time"

// Backoff 翻倍等待序列
//
// 依次给出 initial, 2*initial, 4*initial ...，下一个值超过 max 时结束。
type Backoff struct {
	next time.Duration
	max  time.Duration
}

// NewBackoff 创建翻倍等待序列
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{next: initial, max: max}
}

// Next 返回下一次等待时长；序列结束时返回 false
func (b *Backoff) Next() (time.Duration, bool) {
	if b.next <= 0 || b.next > b.max {
		return 0, false
	}
	d := b.next
	b.next *= 2
	return d, true
}
