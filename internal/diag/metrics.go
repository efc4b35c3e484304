package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry: 进程内指标注册表；运行结束时可写出为文本格式。
var Registry = prometheus.NewRegistry()

var (
	opTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docseq_op_total",
			Help: "Operations by component, stage and result",
		},
		[]string{"comp", "stage", "result"},
	)
	errorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docseq_error_total",
			Help: "Errors by component and classification code",
		},
		[]string{"comp", "code"},
	)
	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docseq_op_duration_ms",
			Help:    "Stage duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"comp", "stage"},
	)
	instancesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docseq_instances_total",
			Help: "Data instances produced per split",
		},
		[]string{"split"},
	)
	skippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docseq_documents_skipped_total",
			Help: "Documents skipped per split and reason",
		},
		[]string{"split", "reason"},
	)
)

func init() {
	Registry.MustRegister(opTotal, errorTotal, opDuration, instancesTotal, skippedTotal)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) { opTotal.WithLabelValues(comp, stage, result).Inc() }

// IncError 按分类累加错误计数。
func IncError(comp, code string) { errorTotal.WithLabelValues(comp, code).Inc() }

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// AddInstances 累加某切分产出的实例数。
func AddInstances(split string, n int) {
	if n > 0 {
		instancesTotal.WithLabelValues(split).Add(float64(n))
	}
}

// IncSkipped 记录一次文档跳过。
func IncSkipped(split, reason string) { skippedTotal.WithLabelValues(split, reason).Inc() }

// WriteTextfile 以 Prometheus 文本格式写出全部指标（node_exporter textfile 约定）。
func WriteTextfile(path string) error { return prometheus.WriteToTextfile(path, Registry) }
