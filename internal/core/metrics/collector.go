package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// 方向标签
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// 结果标签
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultLocal     = "local"
	ResultCollapsed = "collapsed"
)

// Collector 环节点指标收集器
type Collector struct {
	datagrams       *prometheus.CounterVec
	bytes           *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestTimeouts *prometheus.CounterVec
	staleReplies    prometheus.Counter
	inboundDropped  prometheus.Counter
	malformedSet    prometheus.Counter
	repairs         *prometheus.CounterVec
	lookups         *prometheus.CounterVec
	joinDuration    prometheus.Histogram
	phase           prometheus.Gauge
}

// NewCollector 创建收集器并注册到 reg
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		datagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_total",
			Help:      "Datagrams sent and received.",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes sent and received.",
		}, []string{"direction"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Correlated requests issued, by message tag.",
		}, []string{"tag"}),
		requestTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_timeouts_total",
			Help:      "Correlated requests that timed out, by message tag.",
		}, []string{"tag"}),
		staleReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_replies_total",
			Help:      "Replies discarded because no request was pending.",
		}),
		inboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_dropped_total",
			Help:      "Inbound messages dropped because the work queue was full.",
		}),
		malformedSet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_set_total",
			Help:      "Set updates rejected without mutation.",
		}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Ring repairs after successor failure, by result.",
		}, []string{"result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Key lookups, by result.",
		}, []string{"result"}),
		joinDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "join_duration_seconds",
			Help:      "Time from bootstrap to insertion into the ring.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_phase",
			Help:      "Current join phase: 0 created, 1 bootstrapping, 2 searching, 3 inserted, 4 stopped.",
		}),
	}

	var err error
	for _, col := range []prometheus.Collector{
		c.datagrams, c.bytes, c.requests, c.requestTimeouts, c.staleReplies,
		c.inboundDropped, c.malformedSet, c.repairs, c.lookups, c.joinDuration, c.phase,
	} {
		err = multierr.Append(err, reg.Register(col))
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LogSent 记录发送的数据报
func (c *Collector) LogSent(size int) {
	if c == nil {
		return
	}
	c.datagrams.WithLabelValues(DirectionOut).Inc()
	c.bytes.WithLabelValues(DirectionOut).Add(float64(size))
}

// LogRecv 记录收到的数据报
func (c *Collector) LogRecv(size int) {
	if c == nil {
		return
	}
	c.datagrams.WithLabelValues(DirectionIn).Inc()
	c.bytes.WithLabelValues(DirectionIn).Add(float64(size))
}

// RequestSent 记录关联请求
func (c *Collector) RequestSent(tag string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(tag).Inc()
}

// RequestTimedOut 记录关联请求超时
func (c *Collector) RequestTimedOut(tag string) {
	if c == nil {
		return
	}
	c.requestTimeouts.WithLabelValues(tag).Inc()
}

// StaleReply 记录过期回复
func (c *Collector) StaleReply() {
	if c == nil {
		return
	}
	c.staleReplies.Inc()
}

// InboundDropped 记录入站丢弃
func (c *Collector) InboundDropped() {
	if c == nil {
		return
	}
	c.inboundDropped.Inc()
}

// MalformedSet 记录非法 Set
func (c *Collector) MalformedSet() {
	if c == nil {
		return
	}
	c.malformedSet.Inc()
}

// Repair 记录一次修复
func (c *Collector) Repair(result string) {
	if c == nil {
		return
	}
	c.repairs.WithLabelValues(result).Inc()
}

// Lookup 记录一次查找
func (c *Collector) Lookup(result string) {
	if c == nil {
		return
	}
	c.lookups.WithLabelValues(result).Inc()
}

// JoinDuration 记录加入耗时
func (c *Collector) JoinDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.joinDuration.Observe(d.Seconds())
}

// SetPhase 记录当前加入阶段
func (c *Collector) SetPhase(phase int) {
	if c == nil {
		return
	}
	c.phase.Set(float64(phase))
}
