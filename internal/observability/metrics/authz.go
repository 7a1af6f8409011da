package metrics

import (
	"time"

	obserrors "github.com/spaarke-dev/spaarke-sub016/internal/observability/errors"
	"github.com/spaarke-dev/spaarke-sub016/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// CacheName identifies which shared cache produced a metric.
type CacheName string

const (
	CacheSnapshot   CacheName = "snapshot"
	CacheCredential CacheName = "credential"
)

// CacheOp identifies the cache operation outcome. Degrade means the backend
// failed and the caller fell back to a direct load.
type CacheOp string

const (
	OpHit     CacheOp = "hit"
	OpMiss    CacheOp = "miss"
	OpWrite   CacheOp = "write"
	OpDegrade CacheOp = "degrade"
)

// CacheMetric captures one cache operation for metric emission.
type CacheMetric struct {
	Cache CacheName
	Op    CacheOp
	Err   error
}

// EmitCacheOp emits a standardised cache operation counter.
func EmitCacheOp(sink statsd.Sink, in CacheMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"cache": string(in.Cache),
		"op":    string(in.Op),
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("cache.op", 1, tags)
}

// DecisionMetric captures one authorization decision for metric emission.
type DecisionMetric struct {
	Outcome  string // "allow" or "deny"
	Reason   string // denial reason, empty when allowed
	Duration time.Duration
}

// EmitDecision emits standardised authorization decision metrics.
func EmitDecision(sink statsd.Sink, in DecisionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"outcome": in.Outcome}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}

	sink.Count("authz.decision", 1, tags)

	if in.Duration > 0 {
		sink.Timing("authz.duration", in.Duration, CloneTags(tags))
	}
}

// ExchangeMetric captures one delegated-credential lookup or exchange.
type ExchangeMetric struct {
	Result   string
	Cached   bool
	Duration time.Duration
	Err      error
}

// EmitExchange emits standardised credential exchange metrics.
func EmitExchange(sink statsd.Sink, in ExchangeMetric) {
	if sink == nil {
		return
	}

	cached := "false"
	if in.Cached {
		cached = "true"
	}
	tags := map[string]string{
		"result": in.Result,
		"cached": cached,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("exchange.attempt", 1, tags)

	if in.Duration > 0 {
		sink.Timing("exchange.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
