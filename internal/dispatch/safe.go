package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/handler"
	"github.com/roach88/mudsync/internal/telemetry"
)

// ApplySafe dispatches log and absorbs any failure, including a panic in a
// handler. The failure is logged and counted and the log is dropped. It
// reports whether the log was applied.
func (d *Dispatcher) ApplySafe(ctx context.Context, chainID uint64, log types.Log) (applied bool) {
	kind := kindLabel(log)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.drop(log, kind, fmt.Errorf("panic: %v", r))
			applied = false
		}
		telemetry.DispatchSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := d.ApplyLog(ctx, chainID, log); err != nil {
		d.drop(log, kind, err)
		return false
	}
	telemetry.LogsAppliedTotal.With(kind).Inc()
	return true
}

func (d *Dispatcher) drop(log types.Log, kind string, err error) {
	telemetry.LogsFailedTotal.With(kind).Inc()
	d.logger.Warn("dropped log",
		"kind", kind,
		"block", log.BlockNumber,
		"index", log.Index,
		"tx", log.TxHash.Hex(),
		"malformed", handler.IsDecodeError(err),
		"error", err,
	)
}

func kindLabel(log types.Log) string {
	if len(log.Topics) == 0 {
		return "unknown"
	}
	k, ok := codec.KindOf(log.Topics[0])
	if !ok {
		return "unknown"
	}
	return k.String()
}
