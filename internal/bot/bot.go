package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/storage"
	"github.com/raine/candle-listing-bot/internal/suggest"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Suggester produces attribute suggestions for a photo.
type Suggester interface {
	Run(ctx context.Context, image []byte, opts suggest.Options) ([]*suggest.Suggestion, error)
	HasMode(m suggest.Mode) bool
	CanTranslate() bool
	Engine() *attributes.Engine
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg          BotAPI
	state       BotState
	store       storage.Store
	suggester   Suggester
	downloader  *ImageDownloader
	defaultMode suggest.Mode
	adminID     int64
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, suggester Suggester, adminID int64, defaultMode suggest.Mode) *Bot {
	if defaultMode == "" {
		defaultMode = suggest.ModeVision
	}
	bot := &Bot{
		tg:          tg,
		store:       store,
		suggester:   suggester,
		downloader:  NewImageDownloader(),
		defaultMode: defaultMode,
		adminID:     adminID,
	}
	bot.state = bot.NewBotState()
	return bot
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if !b.isAllowed(userId) {
		return
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Int64("userId", userId).Str("text", update.Message.Text).Bool("photo", len(update.Message.Photo) > 0).Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{
			Type:    "photo",
			Ctx:     ctx,
			Message: update.Message,
		})
	} else {
		send(SessionMessage{
			Type:    "text",
			Ctx:     ctx,
			Message: update.Message,
		})
	}
}

// isAllowed checks the whitelist. The admin is always allowed, and store
// errors fail closed.
func (b *Bot) isAllowed(userId int64) bool {
	if userId == b.adminID {
		return true
	}
	allowed, err := b.store.IsUserAllowed(userId)
	if err != nil {
		log.Error().Err(err).Int64("userId", userId).Msg("whitelist check failed")
		return false
	}
	return allowed
}

// HandleSessionMessage implements MessageHandler.
// Called by the session worker goroutine, so session state needs no locking.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.handlePhoto(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	}
}

func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, session, text)
		return
	}

	if field, value, ok := parseCorrection(text); ok {
		b.handleCorrection(session, field, value)
		return
	}

	if session.activeDraft() != nil {
		session.reply(MsgCorrectionHelp)
		return
	}
	session.reply(MsgStartPrompt)
}

func (b *Bot) handleCommand(ctx context.Context, session *UserSession, text string) {
	command, args := parseCommand(text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/help":
		session.reply(MsgHelp)
	case "/mode":
		b.handleModeCommand(session, argsStr)
	case "/language":
		b.handleLanguageCommand(session, argsStr)
	case "/products":
		b.handleProductsCommand(session)
	case "/delete":
		b.handleDeleteCommand(session, argsStr)
	case "/cancel":
		session.clearDrafts(b.tg)
		session.reply(MsgCancelled)
	case "/admin":
		b.handleAdminCommand(session, argsStr)
	default:
		session.reply(MsgUnknownCommand)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	if _, err := b.tg.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}

	if strings.HasPrefix(query.Data, callbackPrefix) {
		b.handleSuggestionCallback(ctx, session, query)
		return
	}
	log.Warn().Str("data", query.Data).Msg("unknown callback")
}

// settings returns the user's effective mode and language.
func (b *Bot) settings(userId int64) (suggest.Mode, string) {
	mode, lang := b.defaultMode, ""
	s, err := b.store.GetUserSettings(userId)
	if err != nil {
		log.Warn().Err(err).Int64("userId", userId).Msg("failed to load user settings, using defaults")
		return mode, lang
	}
	if s == nil {
		return mode, lang
	}
	if m, err := suggest.ParseMode(s.Mode); err == nil && s.Mode != "" {
		mode = m
	}
	return mode, s.Language
}

func (b *Bot) handleModeCommand(session *UserSession, arg string) {
	if arg == "" {
		mode, _ := b.settings(session.userId)
		session.reply(MsgModeCurrent, mode)
		return
	}

	mode, err := suggest.ParseMode(arg)
	if err != nil {
		session.reply(MsgModeUsage)
		return
	}
	if !b.suggester.HasMode(mode) {
		session.reply(MsgModeUnavailable, mode)
		return
	}
	if err := b.store.SetUserMode(session.userId, string(mode)); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgModeSet, mode)
}

func (b *Bot) handleLanguageCommand(session *UserSession, arg string) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		_, lang := b.settings(session.userId)
		if lang == "" {
			session.reply(MsgLanguageOff)
		} else {
			session.reply(MsgLanguageCurrent, languageLabel(lang))
		}
		return
	}

	if arg == "off" || arg == "en" {
		if err := b.store.SetUserLanguage(session.userId, ""); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgLanguageCleared)
		return
	}

	if !languageCodeRegex.MatchString(arg) {
		session.reply(MsgLanguageUsage)
		return
	}
	if !b.suggester.CanTranslate() {
		session.reply(MsgLanguageUnavailable)
		return
	}
	if err := b.store.SetUserLanguage(session.userId, arg); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgLanguageSet, languageLabel(arg))
}

func (b *Bot) handleProductsCommand(session *UserSession) {
	products, err := b.store.ListProducts(session.userId, productListLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(products) == 0 {
		session.reply(MsgNoProducts)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgProductsHeader)
	for _, p := range products {
		sb.WriteString(fmt.Sprintf("• %s, %s\n  `%s` %s\n",
			escapeMarkdown(p.Record.Title), formatPrice(p.Record.Price), p.ID, p.CreatedAt.Format("2006-01-02")))
	}
	session.reply(sb.String())
}

func (b *Bot) handleDeleteCommand(session *UserSession, id string) {
	if id == "" {
		session.reply(MsgDeleteUsage)
		return
	}
	deleted, err := b.store.DeleteProduct(session.userId, id)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if !deleted {
		session.reply(MsgProductNotFound)
		return
	}
	session.reply(MsgProductDeleted)
}

func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	// Verify caller is admin even though whitelist check passed
	if session.userId != b.adminID {
		return
	}

	parts := strings.Fields(args)
	if len(parts) < 2 || parts[0] != "users" {
		session.reply(MsgAdminUsage)
		return
	}
	b.handleAdminUsersCommand(session, parts[1], parts[2:])
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add", "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserUsage, action)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if action == "add" {
			err = b.store.AddAllowedUser(userID, session.userId)
		} else {
			err = b.store.RemoveAllowedUser(userID)
		}
		if err != nil {
			session.replyWithError(err)
			return
		}
		if action == "add" {
			session.reply(MsgAdminUserAdded, userID)
		} else {
			session.reply(MsgAdminUserRemoved, userID)
		}

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
