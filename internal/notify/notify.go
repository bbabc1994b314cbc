// Package notify fans formatted alerts out to subscribers. Delivery is
// fire-and-forget and best-effort: one subscriber's failure never blocks
// delivery to the others or fails the caller.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-transfer-watch/internal/storage"
)

// ErrSubscriberGone marks a permanent delivery failure: the subscriber is
// unreachable and will be pruned from the list.
var ErrSubscriberGone = errors.New("subscriber unreachable")

// Broadcaster delivers a formatted alert to all subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, message string)
}

// Sender delivers one message to one chat. Implementations wrap permanent
// failures with ErrSubscriberGone.
type Sender interface {
	Send(ctx context.Context, chatID int64, message string) error
}

// Service implements Broadcaster over a Sender and a subscriber store.
type Service struct {
	sender  Sender
	store   storage.SubscriberStore
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewService creates a broadcast service. ratePerSec bounds outbound
// sends; zero or less defaults to 10.
func NewService(sender Sender, store storage.SubscriberStore, ratePerSec int, log zerolog.Logger) *Service {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &Service{
		sender:  sender,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
	}
}

// Broadcast sends the message to every subscriber. Failures are logged,
// never returned; permanently unreachable subscribers are pruned.
func (s *Service) Broadcast(ctx context.Context, message string) {
	ids, err := s.store.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("listing subscribers for broadcast")
		return
	}

	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		err := s.sender.Send(ctx, id, message)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSubscriberGone) {
			if rmErr := s.store.Remove(ctx, id); rmErr != nil && !errors.Is(rmErr, storage.ErrNotFound) {
				s.log.Error().Err(rmErr).Int64("chat", id).Msg("pruning unreachable subscriber")
			} else {
				s.log.Info().Int64("chat", id).Msg("pruned unreachable subscriber")
			}
			continue
		}
		s.log.Warn().Err(err).Int64("chat", id).Msg("broadcast delivery failed")
	}
}
