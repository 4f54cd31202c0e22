package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnexpectedErr  = `Unexpected error: %s`
	MsgStartPrompt    = "Send a photo of a candle and I'll suggest the listing fields."
	MsgUnknownCommand = "Unknown command. See /help."
	MsgCancelled      = "Ok, suggestions discarded."
	MsgHelp           = `
		*Candle listing bot*

		Send a photo of a candle. I suggest title, description, type, color, style, price and SKU.
		Correct a field by replying ` + "`field: value`" + `, for example ` + "`color: red-blue`" + ` or ` + "`price: 39.90`" + `.

		/mode vision|ai|compare - pick the suggestion pipeline
		/language <code>|off - translate title and description
		/products - list saved products
		/delete <id> - delete a saved product
		/cancel - discard open suggestions`
)

// =============================================================================
// Suggestion messages
// =============================================================================

const (
	MsgSuggestFailed  = "Could not analyze the photo: %s"
	MsgCorrectionHint = "_Reply_ `field: value` _to correct title, description, price, color, type or style._"
	MsgCorrectionHelp = "Reply `field: value` to correct the suggestion, e.g. `type: pillar`."
	MsgNoDraft        = "No open suggestion. Send a photo first."
	MsgDraftGone      = "That suggestion is no longer open."
	MsgDraftDiscarded = "Discarded."
	MsgEditingDraft   = "Corrections now apply to the *%s* suggestion."
	MsgProductSaved   = "✅ Saved *%s*\nID: `%s`"
	MsgInvalidPrice   = "Price must be a positive number, e.g. `45` or `39.90`."
	MsgInvalidType    = "Unknown type. Choose one of: %s"
	MsgInvalidStyle   = "Unknown style. Choose one of: %s"

	BtnSave     = "💾 Save"
	BtnTryOther = "🔄 Try %s"
	BtnDiscard  = "🗑 Discard"
	BtnEditThis = "✏️ Edit this one"
)

// =============================================================================
// Settings messages
// =============================================================================

const (
	MsgModeCurrent         = "Current mode: *%s*\n\nChange with `/mode vision`, `/mode ai` or `/mode compare`."
	MsgModeSet             = "✅ Mode set to *%s*."
	MsgModeUsage           = "Usage: `/mode vision|ai|compare`"
	MsgModeUnavailable     = "The *%s* pipeline is not configured."
	MsgLanguageCurrent     = "Suggestions are translated to *%s*.\n\nTurn off with `/language off`."
	MsgLanguageOff         = "Suggestions are in English.\n\nTranslate with `/language <code>`, e.g. `/language he`."
	MsgLanguageSet         = "✅ Suggestions will be translated to *%s*."
	MsgLanguageCleared     = "✅ Suggestions will be in English."
	MsgLanguageUsage       = "Usage: `/language <code>` with a language code such as `he`, `de` or `pt-br`, or `/language off`."
	MsgLanguageUnavailable = "Translation is not configured."
)

// =============================================================================
// Catalog messages
// =============================================================================

const (
	MsgNoProducts      = "No saved products yet."
	MsgProductsHeader  = "*Saved products:*\n"
	MsgDeleteUsage     = "Usage: `/delete <id>`"
	MsgProductDeleted  = "🗑 Product deleted."
	MsgProductNotFound = "No such product."
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage         = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserUsage     = "Usage: `/admin users %s <user_id>`"
	MsgAdminUserInvalidID = "Invalid user ID. Give a number."
	MsgAdminUserAdded     = "✅ User `%d` added."
	MsgAdminUserRemoved   = "🗑 User `%d` removed."
	MsgAdminNoUsers       = "No allowed users."
	MsgAdminAllowedUsers  = "*Allowed users:*\n"
)
