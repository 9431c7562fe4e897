package waypoint

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/halo-stats/internal/infrastructure/diagnostic"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

// Dump kinds written by the normalizer.
const (
	DumpTooManyStatsKeys   = "too_many_stats_keys"
	DumpMultipleModeBlocks = "multiple_mode_blocks"
	DumpUnsupportedMode    = "unsupported_mode"
	DumpProcessingError    = "processing_error"
)

// Normalizer turns upstream payloads into domain records. It keeps no state
// between calls; anomalies are logged and dumped to the sink.
type Normalizer struct {
	sink   diagnostic.Sink
	logger *logging.Logger
	now    func() time.Time
}

func NewNormalizer(sink diagnostic.Sink, logger *logging.Logger) *Normalizer {
	if sink == nil {
		sink = diagnostic.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{sink: sink, logger: logger.Named("normalizer"), now: time.Now}
}

func (n *Normalizer) dump(ctx context.Context, kind, subject string, payload []byte) {
	err := n.sink.Write(ctx, diagnostic.Dump{Kind: kind, Subject: subject, Payload: payload, At: n.now()})
	if err != nil {
		n.logger.WarnContext(ctx, "write diagnostic dump failed", "kind", kind, "subject", subject, "error", err)
	}
}

// reject dumps the raw payload behind a normalization failure and returns
// err unchanged.
func (n *Normalizer) reject(ctx context.Context, subject string, err error) error {
	var normErr *usecase.NormalizationError
	if crerr.As(err, &normErr) {
		n.logger.WarnContext(ctx, "normalize payload failed",
			"entity", normErr.EntityKind,
			"path", normErr.Path,
			"error", normErr.Err,
		)
		n.dump(ctx, normErr.EntityKind+"_"+DumpProcessingError, subject, normErr.RawPayload)
	}
	return err
}
