package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/philosothon/philosothon/core/registration"
)

// maxMessageLen is Telegram's limit for a single text message, in runes.
const maxMessageLen = 4096

const (
	msgRetry   = "Your last message crossed another one. Please send it again."
	msgFailure = "Something went wrong on our side. Please try again later."
)

type conversations interface {
	Get(ctx context.Context, id string) (registration.Session, registration.Reply, error)
	Converse(ctx context.Context, id, text string) (registration.Reply, error)
}

// sender is the part of *bot.Bot the handler talks to.
type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

type chatHandler struct {
	convs  conversations
	logger zerolog.Logger
}

func newChatHandler(convs conversations, logger zerolog.Logger) *chatHandler {
	return &chatHandler{convs: convs, logger: logger}
}

// Handle is the bot's default handler.
func (h *chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h *chatHandler) handle(ctx context.Context, s sender, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	id := sessionID(chatID)
	log := h.logger.With().Str("session", id).Logger()

	text := msg.Text
	if cmd := strings.Fields(text); len(cmd) > 0 && strings.HasPrefix(cmd[0], "/start") {
		text = ""
	}
	if text != "" && h.secretInput(ctx, id) {
		// passwords should not stay in the chat history
		if _, err := s.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: msg.ID}); err != nil {
			log.Warn().Err(err).Msg("deleting password message")
		}
	}

	reply, err := h.convs.Converse(ctx, id, text)
	if err != nil {
		if errors.Is(err, registration.ErrVersionConflict) {
			h.send(ctx, s, chatID, msgRetry)
			return
		}
		log.Error().Err(err).Msg("conversation failed")
		h.send(ctx, s, chatID, msgFailure)
		return
	}
	if reply.Err != nil {
		log.Error().Err(reply.Err).Str("stage", string(reply.Stage)).Msg("wizard reported an error")
	}
	for _, chunk := range splitText(replyText(reply), maxMessageLen) {
		h.send(ctx, s, chatID, chunk)
	}
}

// secretInput reports whether the session is waiting for a password.
func (h *chatHandler) secretInput(ctx context.Context, id string) bool {
	sess, _, err := h.convs.Get(ctx, id)
	if err != nil {
		return false
	}
	return sess.Stage == registration.StageEarlyAuth && sess.Auth.Field >= registration.AuthPassword
}

func (h *chatHandler) send(ctx context.Context, s sender, chatID int64, text string) {
	if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.logger.Error().Err(err).Int64("chat", chatID).Msg("sending message")
	}
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func replyText(reply registration.Reply) string {
	lines := append([]string(nil), reply.Messages...)
	if !reply.Ended && reply.Prompt != "" {
		lines = append(lines, reply.Prompt)
	}
	return strings.Join(lines, "\n")
}

// splitText cuts text into chunks of at most max runes, preferring line breaks.
func splitText(text string, max int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+1+n > max {
			flush()
		}
		for n > max {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:max]))
			line = string(runes[max:])
			n -= max
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}
