// Package telegram is the bot's only transport: it receives commands via
// long polling and delivers scheduler output. All outbound traffic funnels
// through one rate limiter to stay under Telegram's global send limit.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"remindbot/internal/admin"
	"remindbot/internal/domain"
	"remindbot/internal/store"
	"remindbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Bot wraps telebot with the command handlers and the scheduler delivery
// surface. It satisfies sched.Deliverer.
type Bot struct {
	bot     *tele.Bot
	store   store.Store
	admins  *admin.Registry
	limiter *rate.Limiter
	log     logx.Logger
}

// handlerTimeout bounds the work done for a single incoming update.
const handlerTimeout = 15 * time.Second

func New(cfg Config, st store.Store, admins *admin.Registry, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	b := &Bot{
		bot:    tb,
		store:  st,
		admins: admins,
		// ~25 msg/s bot-wide with a small burst; Telegram caps around 30.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log.With(logx.String("comp", "telegram")),
	}
	b.registerHandlers()
	return b, nil
}

// Poll runs the long-poll loop and blocks until ctx is canceled or the
// poller dies. Callers run it under a restart supervisor so the loop
// self-heals if telebot exits unexpectedly.
func (b *Bot) Poll(ctx context.Context) {
	stop := context.AfterFunc(ctx, b.bot.Stop)
	defer stop()

	b.log.Info("polling started")
	b.bot.Start()
	b.log.Info("polling stopped")
}

// SendReminder implements sched.Deliverer.
func (b *Bot) SendReminder(ctx context.Context, userID int64, tasks []domain.Task) error {
	return b.send(ctx, userID, formatReminder(tasks))
}

// SendDailyReport implements sched.Deliverer.
func (b *Bot) SendDailyReport(ctx context.Context, userID int64, report domain.PerformanceReport) error {
	return b.send(ctx, userID, formatDailyReport(report))
}

// send pushes HTML text to a user's private chat, chunked to the Telegram
// message limit, throttled by the shared limiter.
func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	chat := &tele.Chat{ID: chatID}
	for _, chunk := range splitText(text, textLimit) {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := b.bot.Send(chat, chunk, tele.ModeHTML); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}

// reply answers the update that triggered a handler, reusing the throttle.
func (b *Bot) reply(c tele.Context, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	return b.send(ctx, c.Chat().ID, text)
}
