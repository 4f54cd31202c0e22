package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/llm"
	"github.com/rs/zerolog/log"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Only one is set based on Type
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string
}

// MessageSender abstracts the ability to send Telegram messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler is the interface for processing session messages.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// Draft is one suggestion shown to the user, open for corrections until it
// is saved or discarded.
type Draft struct {
	Record    attributes.AttributeRecord
	Source    string
	Language  string
	Cached    bool
	Usage     llm.Usage
	MessageID int

	titleEdited bool
}

// UserSession represents a user's session with the bot.
//
// Each session has a dedicated worker goroutine that processes messages
// sequentially. Handlers run only on the worker and access draft state
// without locks.
type UserSession struct {
	userId int64
	sender MessageSender

	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler

	// Photo being worked on and the suggestions made for it. Discarded
	// drafts stay as nil so callback indexes remain valid.
	image  []byte
	drafts []*Draft
	active int
}

// activeDraft returns the draft that corrections apply to, or nil.
func (s *UserSession) activeDraft() *Draft {
	return s.draftAt(s.active)
}

func (s *UserSession) draftAt(i int) *Draft {
	if i < 0 || i >= len(s.drafts) {
		return nil
	}
	return s.drafts[i]
}

// setDrafts starts a new photo, dropping the keyboards of any open drafts.
func (s *UserSession) setDrafts(tg MessageSender, image []byte, drafts []*Draft) {
	s.clearDrafts(tg)
	s.image = image
	s.drafts = drafts
	s.active = len(drafts) - 1
}

// closeDraft removes the draft's inline keyboard and forgets it.
func (s *UserSession) closeDraft(tg MessageSender, i int) {
	d := s.draftAt(i)
	if d == nil {
		return
	}
	removeInlineKeyboard(tg, s.userId, d.MessageID)
	s.drafts[i] = nil

	if s.active == i {
		s.active = -1
		for j := len(s.drafts) - 1; j >= 0; j-- {
			if s.drafts[j] != nil {
				s.active = j
				break
			}
		}
	}
	if s.active == -1 {
		s.image = nil
		s.drafts = nil
	}
}

func (s *UserSession) clearDrafts(tg MessageSender) {
	for i := range s.drafts {
		s.closeDraft(tg, i)
	}
	s.image = nil
	s.drafts = nil
	s.active = -1
}

func removeInlineKeyboard(tg MessageSender, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := tg.Request(edit); err != nil {
		log.Debug().Err(err).Int("messageId", messageID).Msg("failed to remove inline keyboard")
	}
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s.reply(MsgUnexpectedErr, escapeMarkdown(err.Error()))
}

// sendTypingAction sends a "typing" chat action. The indicator expires after
// about five seconds in Telegram.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// sendChatAction returns a boolean, not a Message
	if _, err := s.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until the context is
// cancelled. Run it in a goroutine.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	}
	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
