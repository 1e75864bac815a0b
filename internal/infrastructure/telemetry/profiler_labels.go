package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelJobType   = "job_type"
	ProfilingLabelTenantID  = "tenant_id"
	ProfilingLabelEntity    = "entity_type"
)

// MaxLabelValueLength caps label values to keep profile cardinality bounded.
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels.
var highCardinalityLabels = map[string]struct{}{
	"user_id":    {},
	"request_id": {},
	"trace_id":   {},
	"span_id":    {},
	"session_id": {},
	"job_id":     {},
}

// WithProfilingLabels runs fn with pprof labels attached, so Pyroscope can
// slice CPU time by job type, tenant or entity.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns sorted key/value pairs with empty, high-cardinality
// and oversized entries removed or truncated.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		k = strings.TrimSpace(k)
		if k == "" || v == "" {
			continue
		}
		if _, ok := highCardinalityLabels[strings.ToLower(k)]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, strings.ToLower(k), v)
	}
	return pairs
}
