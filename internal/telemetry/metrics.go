package telemetry

// DispatchBuckets covers a single SQLite transaction per log.
var DispatchBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

var (
	// LogsAppliedTotal counts logs applied successfully, by event kind.
	LogsAppliedTotal CounterVec = noopCounterVec{}

	// LogsFailedTotal counts logs dropped at the fault-isolation boundary, by event kind.
	LogsFailedTotal CounterVec = noopCounterVec{}

	// RecordsWrittenTotal counts record mutations by op (put, delete).
	RecordsWrittenTotal CounterVec = noopCounterVec{}

	// CheckpointBlock is the last synced block per namespace.
	CheckpointBlock GaugeVec = noopGaugeVec{}

	// DispatchSeconds measures the latency of one dispatch.
	DispatchSeconds Histogram = NoopStat{}

	// BackfillLogs is the number of logs returned by the latest backfill query.
	BackfillLogs Gauge = NoopStat{}
)

func initMetrics() {
	LogsAppliedTotal = newCounterVec("logs_applied_total", "Store event logs applied", "kind")
	LogsFailedTotal = newCounterVec("logs_failed_total", "Store event logs dropped after a dispatch failure", "kind")
	RecordsWrittenTotal = newCounterVec("records_written_total", "Record mutations", "op")
	CheckpointBlock = newGaugeVec("checkpoint_block", "Last synced block per namespace", "namespace")
	DispatchSeconds = newHistogram("dispatch_seconds", "Latency of applying one log", DispatchBuckets)
	BackfillLogs = newGauge("backfill_logs", "Logs returned by the latest backfill query")
}

// SetCheckpoint records a namespace checkpoint.
func SetCheckpoint(namespaceHex string, block uint64) {
	CheckpointBlock.With(namespaceHex).Set(float64(block))
}

// RecordWrite counts one record mutation.
func RecordWrite(op string) {
	RecordsWrittenTotal.With(op).Inc()
}
