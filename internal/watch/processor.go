// Package watch runs the event-processing pump: notification → dedup →
// lookup → classification → alert.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-transfer-watch/internal/classify"
	"solana-transfer-watch/internal/dedup"
	"solana-transfer-watch/internal/notify"
	"solana-transfer-watch/internal/observability"
	"solana-transfer-watch/internal/solana"
)

// Processor consumes log events one at a time, strictly in arrival order.
// The dedup check happens before the lookup suspend point, so no signature
// is ever dispatched into two concurrent classification attempts.
type Processor struct {
	rpc        solana.RPCClient
	cache      *dedup.Cache
	classifier *classify.Classifier
	sink       notify.Broadcaster
	metrics    *observability.Metrics
	log        zerolog.Logger
}

// NewProcessor creates the event processor. metrics may be nil.
func NewProcessor(
	rpc solana.RPCClient,
	cache *dedup.Cache,
	classifier *classify.Classifier,
	sink notify.Broadcaster,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		rpc:        rpc,
		cache:      cache,
		classifier: classifier,
		sink:       sink,
		metrics:    metrics,
		log:        log,
	}
}

// Run drains events until the channel closes or ctx is cancelled.
func (p *Processor) Run(ctx context.Context, events <-chan solana.LogEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle processes a single notification.
func (p *Processor) Handle(ctx context.Context, ev solana.LogEvent) {
	if p.metrics != nil {
		p.metrics.NotificationsReceived.Inc()
	}

	if ev.Signature == "" {
		return
	}

	// Marked seen before any I/O; a failed lookup does not retry.
	if p.cache.Seen(ev.Signature) {
		if p.metrics != nil {
			p.metrics.DuplicatesSkipped.Inc()
		}
		p.log.Debug().Str("signature", ev.Signature).Msg("duplicate signature skipped")
		return
	}

	start := time.Now()
	tx, err := p.rpc.GetTransaction(ctx, ev.Signature)
	if p.metrics != nil {
		p.metrics.LookupLatency.Observe(time.Since(start).Seconds())
	}
	if err == nil && tx == nil {
		err = fmt.Errorf("transaction not found")
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.LookupErrors.Inc()
		}
		p.log.Warn().Err(err).Str("signature", ev.Signature).Msg("transaction lookup failed")
		p.sink.Broadcast(ctx, FormatLookupFailure(ev.Signature, err))
		return
	}

	match, err := p.classifier.Classify(tx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordsMalformed.Inc()
		}
		if errors.Is(err, classify.ErrMalformedRecord) {
			p.log.Warn().Str("signature", ev.Signature).Msg("malformed record, classification aborted")
		} else {
			p.log.Warn().Err(err).Str("signature", ev.Signature).Msg("classification aborted")
		}
		return
	}
	if match == nil {
		// Valid record, no qualifying transfer: silent drop.
		return
	}

	if p.metrics != nil {
		p.metrics.TransfersMatched.Inc()
	}
	p.log.Info().
		Str("signature", match.Signature).
		Str("from", match.From).
		Str("to", match.To).
		Uint64("lamports", match.Lamports).
		Msg("transfer matched")

	p.sink.Broadcast(ctx, FormatAlert(match))
	if p.metrics != nil {
		p.metrics.AlertsBroadcast.Inc()
	}
}
