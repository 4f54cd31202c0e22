package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/raine/candle-listing-bot/internal/suggest"
	"github.com/rs/zerolog/log"
)

const callbackPrefix = "sug:"

// Suggestion callback actions, encoded as "sug:<action>:<draft index>".
const (
	actionSave    = "save"
	actionOther   = "other"
	actionDiscard = "discard"
	actionEdit    = "edit"
)

func newDraft(s *suggest.Suggestion) *Draft {
	return &Draft{
		Record:   s.Record,
		Source:   s.Source,
		Language: s.Language,
		Cached:   s.Cached,
		Usage:    s.Usage,
	}
}

// handlePhoto runs the user's pipeline on the largest size of the photo and
// shows the resulting drafts.
func (b *Bot) handlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	mode, lang := b.settings(session.userId)
	if !b.suggester.HasMode(mode) {
		session.reply(MsgModeUnavailable, mode)
		return
	}

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go session.startTypingLoop(typingCtx)

	photo := message.Photo[len(message.Photo)-1]
	image, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		session.replyWithError(err)
		return
	}

	suggestions, err := b.suggester.Run(ctx, image, suggest.Options{Mode: mode, Language: lang})
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Str("mode", string(mode)).Msg("suggestion failed")
		session.reply(MsgSuggestFailed, escapeMarkdown(err.Error()))
		return
	}

	drafts := make([]*Draft, len(suggestions))
	for i, s := range suggestions {
		drafts[i] = newDraft(s)
	}
	session.setDrafts(b.tg, image, drafts)
	for i := range drafts {
		b.sendDraft(session, i)
	}
}

// sendDraft posts the draft with its inline keyboard and remembers the
// message so the keyboard can be removed later.
func (b *Bot) sendDraft(session *UserSession, i int) {
	d := session.draftAt(i)
	if d == nil {
		return
	}
	msg := tgbotapi.NewMessage(session.userId, renderDraft(d))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = b.draftKeyboard(i, d.Source, len(session.drafts) > 1)
	sent := session.replyWithMessage(msg)
	d.MessageID = sent.MessageID
}

func (b *Bot) draftKeyboard(i int, source string, multiple bool) tgbotapi.InlineKeyboardMarkup {
	data := func(action string) string {
		return fmt.Sprintf("%s%s:%d", callbackPrefix, action, i)
	}

	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(BtnSave, data(actionSave)),
	}
	if other := otherMode(source); b.suggester.HasMode(other) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf(BtnTryOther, other), data(actionOther)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(BtnDiscard, data(actionDiscard)))

	rows := [][]tgbotapi.InlineKeyboardButton{row}
	if multiple {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnEditThis, data(actionEdit)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func otherMode(source string) suggest.Mode {
	if source == suggest.SourceAI {
		return suggest.ModeVision
	}
	return suggest.ModeAI
}

func renderDraft(d *Draft) string {
	r := d.Record
	var sb strings.Builder

	header := fmt.Sprintf("*Suggested listing* (%s", d.Source)
	if d.Cached {
		header += ", cached"
	}
	if d.Language != "" {
		header += ", " + d.Language
	}
	sb.WriteString(header + ")\n\n")

	set := "no"
	if r.IsSet {
		set = "yes"
	}
	fmt.Fprintf(&sb, "*Title:* %s\n", escapeMarkdown(r.Title))
	fmt.Fprintf(&sb, "*Description:* %s\n", escapeMarkdown(r.Description))
	fmt.Fprintf(&sb, "*Type:* %s\n", r.Type)
	fmt.Fprintf(&sb, "*Color:* %s\n", r.Color)
	fmt.Fprintf(&sb, "*Style:* %s\n", r.Style)
	fmt.Fprintf(&sb, "*Set:* %s\n", set)
	fmt.Fprintf(&sb, "*Price:* %s\n", formatPrice(r.Price))
	fmt.Fprintf(&sb, "*SKU:* `%s`\n", r.SKU)

	if d.Usage.CostUSD > 0 {
		fmt.Fprintf(&sb, "\n_AI cost: $%.4f_\n", d.Usage.CostUSD)
	}
	sb.WriteString("\n" + MsgCorrectionHint)
	return sb.String()
}

func (b *Bot) handleSuggestionCallback(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	parts := strings.Split(strings.TrimPrefix(query.Data, callbackPrefix), ":")
	if len(parts) != 2 {
		log.Warn().Str("data", query.Data).Msg("malformed suggestion callback")
		return
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil {
		log.Warn().Str("data", query.Data).Msg("malformed suggestion callback")
		return
	}

	d := session.draftAt(i)
	if d == nil {
		session.reply(MsgDraftGone)
		return
	}

	switch parts[0] {
	case actionSave:
		product, err := b.store.SaveProduct(session.userId, d.Source, d.Record)
		if err != nil {
			session.replyWithError(err)
			return
		}
		log.Info().Int64("userId", session.userId).Str("productId", product.ID).Str("sku", d.Record.SKU).Msg("saved product")
		session.clearDrafts(b.tg)
		session.reply(MsgProductSaved, escapeMarkdown(d.Record.Title), product.ID)

	case actionDiscard:
		session.closeDraft(b.tg, i)
		session.reply(MsgDraftDiscarded)

	case actionEdit:
		session.active = i
		session.reply(MsgEditingDraft, d.Source)

	case actionOther:
		b.retryWithOtherPipeline(ctx, session, i, d)

	default:
		log.Warn().Str("data", query.Data).Msg("unknown suggestion action")
	}
}

// retryWithOtherPipeline replaces draft i with a suggestion from the other
// pipeline for the same photo.
func (b *Bot) retryWithOtherPipeline(ctx context.Context, session *UserSession, i int, d *Draft) {
	mode := otherMode(d.Source)
	if !b.suggester.HasMode(mode) || session.image == nil {
		session.reply(MsgModeUnavailable, mode)
		return
	}

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go session.startTypingLoop(typingCtx)

	_, lang := b.settings(session.userId)
	suggestions, err := b.suggester.Run(ctx, session.image, suggest.Options{Mode: mode, Language: lang})
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Str("mode", string(mode)).Msg("suggestion failed")
		session.reply(MsgSuggestFailed, escapeMarkdown(err.Error()))
		return
	}

	removeInlineKeyboard(b.tg, session.userId, d.MessageID)
	session.drafts[i] = newDraft(suggestions[0])
	session.active = i
	b.sendDraft(session, i)
}

var errInvalidPrice = errors.New("invalid price")

// handleCorrection applies a "field: value" correction to the active draft
// and shows the new record.
func (b *Bot) handleCorrection(session *UserSession, field, value string) {
	d := session.activeDraft()
	if d == nil {
		session.reply(MsgNoDraft)
		return
	}

	rec := d.Record
	switch field {
	case "title":
		rec = rec.WithTitle(value)
		d.titleEdited = true
	case "description":
		rec = rec.WithDescription(value)
	case "price":
		price, err := parsePrice(value)
		if err != nil {
			session.reply(MsgInvalidPrice)
			return
		}
		rec = rec.WithPrice(price)
	case "color":
		rec = b.reclassify(d, rec.WithColor(attributes.NormalizeColor(value)))
	case "type":
		t, ok := attributes.ParseCandleType(value)
		if !ok {
			session.reply(MsgInvalidType, joinNames(attributes.CandleTypes))
			return
		}
		rec = b.reclassify(d, rec.WithType(t))
	case "style":
		s, ok := attributes.ParseStyle(value)
		if !ok {
			session.reply(MsgInvalidStyle, joinNames(attributes.Styles))
			return
		}
		rec = b.reclassify(d, rec.WithStyle(s))
	}

	log.Info().Int64("userId", session.userId).Str("field", field).Str("sku", rec.SKU).Msg("applied correction")

	removeInlineKeyboard(b.tg, session.userId, d.MessageID)
	d.Record = rec
	b.sendDraft(session, session.active)
}

// reclassify rebuilds SKU and title for a record whose type, color or style
// was corrected. Description, price and user-edited or translated titles are
// kept.
func (b *Bot) reclassify(d *Draft, corrected attributes.AttributeRecord) attributes.AttributeRecord {
	rec := b.suggester.Engine().Record(corrected.Classification(), nil).
		WithDescription(corrected.Description).
		WithPrice(corrected.Price)
	if d.titleEdited || d.Language != "" {
		rec = rec.WithTitle(corrected.Title)
	}
	return rec
}

func joinNames[T ~string](names []T) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}
