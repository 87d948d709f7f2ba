// Package telegram delivers notifications to a Telegram chat. Action buttons
// become an inline keyboard; button presses come back as callback queries.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"tickler/internal/notify"
	logx "tickler/pkg/logx"
)

type Config struct {
	Token      string
	ChatID     int64
	RatePerSec int
	// PollTimeout for the long-poll loop; zero means 10s.
	PollTimeout time.Duration
}

type Poster struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	limiter *rate.Limiter

	mu      sync.Mutex
	emit    func(notify.Response)
	started bool
}

func New(cfg Config, log logx.Logger) (*Poster, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 10 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}

	p := &Poster{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}

	bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		action, taskID := splitCallbackData(cb.Data)
		if action == "" {
			return c.Respond()
		}

		p.mu.Lock()
		emit := p.emit
		p.mu.Unlock()
		if emit != nil {
			emit(notify.Response{ActionID: action, TaskID: taskID})
		}
		return c.Respond(&tele.CallbackResponse{Text: "ok"})
	})

	go func() {
		p.mu.Lock()
		p.started = true
		p.mu.Unlock()
		bot.Start()
	}()

	return p, nil
}

func (p *Poster) Close() error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()
	if started {
		p.bot.Stop()
	}
	return nil
}

func (p *Poster) Ready(ctx context.Context) error {
	if p.bot == nil {
		return errors.New("bot not initialized")
	}
	return nil
}

func (p *Poster) OnAction(fn func(notify.Response)) {
	p.mu.Lock()
	p.emit = fn
	p.mu.Unlock()
}

func (p *Poster) Post(ctx context.Context, c notify.Content, actions []notify.Action) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	var text strings.Builder
	text.WriteString("⏰ ")
	text.WriteString(c.Title)
	if c.Body != "" {
		text.WriteString("\n")
		text.WriteString(c.Body)
	}

	var opts []any
	if len(actions) > 0 {
		row := make([]tele.InlineButton, 0, len(actions))
		for _, a := range actions {
			row = append(row, tele.InlineButton{
				Text: a.Title,
				Data: joinCallbackData(a.ID, c.TaskID),
			})
		}
		opts = append(opts, &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}})
	}

	_, err := p.bot.Send(tele.ChatID(p.cfg.ChatID), text.String(), opts...)
	return err
}

// Callback data is "action|taskID"; Telegram caps data at 64 bytes, which a
// UUID plus a short action id fits comfortably.
func joinCallbackData(action, taskID string) string {
	if taskID == "" {
		return action
	}
	return action + "|" + taskID
}

func splitCallbackData(data string) (action, taskID string) {
	data = strings.TrimSpace(strings.TrimPrefix(data, "\f"))
	action, taskID, _ = strings.Cut(data, "|")
	return action, taskID
}
