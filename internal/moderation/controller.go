package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Xuanwo/onobot/internal/correlation"
	"github.com/Xuanwo/onobot/internal/telegram"
)

// Transport is the slice of the platform client the controller drives.
type Transport interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

// ErrLookupMiss reports a moderation signal whose forwarded origin has no
// entry in the correlation cache: the moderator explicitly tried to flag
// a message the bot cannot identify.
var ErrLookupMiss = errors.New("moderation: forwarded message has no correlation entry")

// User-facing texts. The notice is posted publicly in the main group;
// the rest goes only to the requesting moderator.
const (
	textNotice         = "此话题已经偏离本群主题，请移步至相应的讨论群继续话题"
	textNoticeButtonOT = "跳转到 OT 群"
	textNoticeAppeal   = "申诉"
	textConfirmPrompt  = "确认将该消息标记为离题？"
	textConfirmButton  = "确认出警"
	textAckDone        = "出警成功"
	textAckDuplicate   = "该消息已处理"
	textLookupMiss     = "无法定位原始消息，请直接转发群内的原始消息"
)

// Config carries the chat topology the controller operates on.
type Config struct {
	// MainGroupID is the watched discussion group.
	MainGroupID int64
	// AdminGroupID is the moderators' group; replying to a message there
	// is the second way to point the bot at a message.
	AdminGroupID int64
	// OfftopicGroupURL and AppealGroupURL are the two links attached to
	// every public notice.
	OfftopicGroupURL string
	AppealGroupURL   string
}

// Controller consumes the inbound update stream one update at a time and
// turns moderator signals (a forwarded copy, an admin-group reply, a
// button press) into an unambiguous reference to one group message.
// Updates must be fed sequentially; the controller holds its cache and
// consumed-token state without locks on that assumption.
type Controller struct {
	log    *slog.Logger
	api    Transport
	cache  correlation.Cache
	admins *Registry
	cfg    Config

	// Message ids whose off-topic notice already went out. Pressing a
	// stale button again is acknowledged but never re-posts the notice.
	consumed map[int64]struct{}
}

func NewController(logger *slog.Logger, api Transport, cache correlation.Cache, admins *Registry, cfg Config) *Controller {
	return &Controller{
		log:      logger,
		api:      api,
		cache:    cache,
		admins:   admins,
		cfg:      cfg,
		consumed: make(map[int64]struct{}),
	}
}

// HandleUpdate processes one inbound update. An error abandons only this
// update; the caller logs it and moves on to the next one.
func (c *Controller) HandleUpdate(ctx context.Context, u telegram.Update) error {
	switch {
	case u.Message != nil:
		metricUpdates.WithLabelValues("message").Inc()
		return c.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		metricUpdates.WithLabelValues("callback_query").Inc()
		return c.handleCallback(ctx, u.CallbackQuery)
	default:
		metricUpdates.WithLabelValues("other").Inc()
		c.log.Debug("ignoring update kind", "update_id", u.UpdateID)
		return nil
	}
}

func (c *Controller) handleMessage(ctx context.Context, m *telegram.Message) error {
	if m.Chat == nil || m.From == nil {
		return nil
	}

	// Every main group message is fingerprinted so a later forward of it
	// can be traced back. Who sent it does not matter here.
	if m.Chat.ID == c.cfg.MainGroupID {
		key := correlation.Key{SenderID: m.From.ID, Timestamp: m.Date}
		if err := c.cache.Put(key, m.MessageID); err != nil {
			return fmt.Errorf("record message %d: %w", m.MessageID, err)
		}
		metricCachePuts.Inc()
		c.log.Debug("message recorded", "key", key.String(), "message_id", m.MessageID)
		return nil
	}

	return c.handleModerationSignal(ctx, m)
}

// handleModerationSignal covers the two ways a moderator points the bot
// at a message: forwarding it to the bot's private chat, or replying to
// it in the admin group.
func (c *Controller) handleModerationSignal(ctx context.Context, m *telegram.Message) error {
	forwarded := m.Chat.Type == "private" && m.ForwardFrom != nil
	adminReply := m.Chat.ID == c.cfg.AdminGroupID && m.ReplyTo != nil
	if !forwarded && !adminReply {
		return nil
	}

	// Authorization is checked once, here: the confirmation button goes
	// only to this moderator's chat, so the button press is not re-checked.
	if !c.admins.IsAdmin(m.From.ID) {
		metricDenied.Inc()
		c.log.Debug("sender is not an admin, ignoring",
			"user_id", m.From.ID,
			"username", m.From.Username,
		)
		return nil
	}

	var target int64
	if forwarded {
		key := correlation.Key{SenderID: m.ForwardFrom.ID, Timestamp: m.ForwardDate}
		id, ok, err := c.cache.Get(key)
		if err != nil {
			return fmt.Errorf("resolve forward %s: %w", key, err)
		}
		if !ok {
			metricLookupMisses.Inc()
			if err := c.api.SendMessage(ctx, telegram.SendMessageRequest{
				ChatID: m.Chat.ID,
				Text:   textLookupMiss,
			}); err != nil {
				metricTransportErrors.Inc()
				c.log.Warn("send lookup miss reply failed", "error", err.Error())
			}
			return fmt.Errorf("%w: key %s", ErrLookupMiss, key)
		}
		target = id
	} else {
		target = m.ReplyTo.MessageID
	}

	payload, err := Token{Version: TokenVersion, Kind: KindFlagOfftopic, MessageID: target}.Encode()
	if err != nil {
		return fmt.Errorf("encode callback token: %w", err)
	}

	err = c.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: m.Chat.ID,
		Text:   textConfirmPrompt,
		ReplyMarkup: &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{
				{{Text: textConfirmButton, CallbackData: payload}},
			},
		},
	})
	if err != nil {
		metricTransportErrors.Inc()
		return fmt.Errorf("send confirmation prompt: %w", err)
	}
	metricPrompts.Inc()
	c.log.Info("confirmation prompt sent",
		"admin_id", m.From.ID,
		"admin", m.From.Username,
		"message_id", target,
	)
	return nil
}

func (c *Controller) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	if cb.Data == "" {
		// Buttons without payloads exist (url buttons, other bots'
		// leftovers); nothing to do beyond dismissing the spinner.
		c.log.Warn("callback query without payload", "callback_id", cb.ID)
		return c.ack(ctx, cb.ID, "")
	}

	token, err := DecodeToken(cb.Data)
	if err != nil {
		metricDecodeFailures.Inc()
		if ackErr := c.ack(ctx, cb.ID, ""); ackErr != nil {
			c.log.Warn("ack malformed callback failed", "error", ackErr.Error())
		}
		return fmt.Errorf("decode callback payload: %w", err)
	}

	if _, done := c.consumed[token.MessageID]; done {
		c.log.Debug("duplicate callback for handled message", "message_id", token.MessageID)
		return c.ack(ctx, cb.ID, textAckDuplicate)
	}

	err = c.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           c.cfg.MainGroupID,
		Text:             textNotice,
		ParseMode:        "Markdown",
		ReplyToMessageID: token.MessageID,
		ReplyMarkup: &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: textNoticeButtonOT, URL: c.cfg.OfftopicGroupURL},
				{Text: textNoticeAppeal, URL: c.cfg.AppealGroupURL},
			}},
		},
	})
	if err != nil {
		metricTransportErrors.Inc()
		return fmt.Errorf("send offtopic notice: %w", err)
	}
	c.consumed[token.MessageID] = struct{}{}
	metricNotices.Inc()
	c.log.Info("offtopic notice posted",
		"message_id", token.MessageID,
		"by", userLabel(cb.From),
	)
	return c.ack(ctx, cb.ID, textAckDone)
}

func (c *Controller) ack(ctx context.Context, callbackID, text string) error {
	if err := c.api.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		metricTransportErrors.Inc()
		return fmt.Errorf("answer callback query: %w", err)
	}
	return nil
}

func userLabel(u *telegram.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("%d", u.ID)
}
