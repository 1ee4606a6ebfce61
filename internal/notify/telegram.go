package notify

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/trigger"
)

// telebotSender is the slice of the telebot API the sink needs, kept as
// an interface so tests can substitute a fake bot.
type telebotSender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Formatter renders the reminder text for a chat message.
type Formatter func(name string, daysUntil int, age int, ageKnown bool) string

// TelegramSink sends reminders to a Telegram chat, rate limited per the
// Bot API etiquette.
type TelegramSink struct {
	bot     telebotSender
	chatID  int64
	limiter *rate.Limiter
	format  Formatter
}

// NewTelegramSink connects to the Telegram Bot API and validates the
// configuration.
func NewTelegramSink(token string, chatID int64, format Formatter) (*TelegramSink, error) {
	if token == "" {
		return nil, errors.New(config.ErrTelegramToken)
	}
	if chatID == 0 {
		return nil, errors.New(config.ErrTelegramChat)
	}
	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTelegramInit, err)
	}
	return &TelegramSink{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(config.TelegramRatePerSec), config.TelegramRatePerSec),
		format:  format,
	}, nil
}

func (s *TelegramSink) Name() string { return config.SinkNameTelegram }

// Send delivers one reminder message, waiting for a rate limiter slot
// first so bursts of simultaneous birthdays do not trip the Bot API.
func (s *TelegramSink) Send(ctx context.Context, evt trigger.ReminderEvent) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	text := fmt.Sprintf(config.FallbackReminder, evt.Name, evt.DaysUntil)
	if s.format != nil {
		age, known := 0, false
		if evt.AgeTurning != nil {
			age, known = *evt.AgeTurning, true
		}
		text = s.format(evt.Name, evt.DaysUntil, age, known)
	}

	_, err := s.bot.Send(&tele.Chat{ID: s.chatID}, text, &tele.SendOptions{})
	return err
}
