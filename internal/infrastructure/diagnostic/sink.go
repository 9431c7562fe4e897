package diagnostic

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dump is a raw upstream payload kept for offline inspection.
type Dump struct {
	Kind    string
	Subject string
	Payload []byte
	At      time.Time
}

// Sink stores dumps. Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, dump Dump) error
}

type NopSink struct{}

func (NopSink) Write(context.Context, Dump) error { return nil }

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, dump Dump) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Write(ctx, dump); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName renders "<kind>/<yyyymmddThhmmss>_<subject>_<id>.json".
func objectName(dump Dump) string {
	at := dump.At
	if at.IsZero() {
		at = time.Now()
	}
	kind := sanitize(dump.Kind, "unknown")
	subject := sanitize(dump.Subject, "payload")
	return kind + "/" + at.UTC().Format("20060102T150405") + "_" + subject + "_" + uuid.NewString()[:8] + ".json"
}

func sanitize(v, fallback string) string {
	v = strings.Trim(unsafeNameChars.ReplaceAllString(strings.TrimSpace(v), "_"), "_")
	if v == "" {
		return fallback
	}
	if len(v) > 80 {
		v = v[:80]
	}
	return v
}
