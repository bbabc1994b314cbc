package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"solana-transfer-watch/internal/storage"
)

// Bot is the Telegram surface: it implements Sender for the broadcast
// service and manages the subscriber list through chat commands.
type Bot struct {
	bot    *tele.Bot
	store  storage.SubscriberStore
	status func() string
	log    zerolog.Logger
}

// NewBot creates the Telegram bot. status supplies the /status reply and
// may be nil.
func NewBot(token string, store storage.SubscriberStore, status func() string, log zerolog.Logger) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Bot{bot: b, store: store, status: status, log: log}, nil
}

// Start registers the command handlers and polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Handle("/start", func(c tele.Context) error {
		chatID := c.Chat().ID
		if err := b.store.Add(ctx, chatID); err != nil {
			b.log.Error().Err(err).Int64("chat", chatID).Msg("subscribing chat")
			return c.Send("Could not subscribe, try again later.")
		}
		b.log.Info().Int64("chat", chatID).Msg("chat subscribed")
		return c.Send("Subscribed. You will receive transfer alerts here. Send /stop to unsubscribe.")
	})

	b.bot.Handle("/stop", func(c tele.Context) error {
		chatID := c.Chat().ID
		err := b.store.Remove(ctx, chatID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.log.Error().Err(err).Int64("chat", chatID).Msg("unsubscribing chat")
			return c.Send("Could not unsubscribe, try again later.")
		}
		b.log.Info().Int64("chat", chatID).Msg("chat unsubscribed")
		return c.Send("Unsubscribed. Send /start to subscribe again.")
	})

	b.bot.Handle("/status", func(c tele.Context) error {
		if b.status == nil {
			return c.Send("Watcher is running.")
		}
		return c.Send(b.status(), tele.ModeHTML)
	})

	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()

	b.log.Info().Msg("telegram bot polling")
	b.bot.Start()
}

// Send delivers one HTML message to one chat. Permanent failures are
// wrapped with ErrSubscriberGone.
func (b *Bot) Send(_ context.Context, chatID int64, message string) error {
	_, err := b.bot.Send(tele.ChatID(chatID), message, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err == nil {
		return nil
	}
	if isPermanent(err) {
		return fmt.Errorf("%w: %v", ErrSubscriberGone, err)
	}
	return err
}

func isPermanent(err error) bool {
	if errors.Is(err, tele.ErrBlockedByUser) ||
		errors.Is(err, tele.ErrChatNotFound) ||
		errors.Is(err, tele.ErrUserIsDeactivated) {
		return true
	}
	var te *tele.Error
	if errors.As(err, &te) {
		return te.Code == http.StatusForbidden
	}
	return false
}
