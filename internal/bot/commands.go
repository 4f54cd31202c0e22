package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command defines a bot command for the Telegram menu.
type Command struct {
	Name        string // Command name without slash (e.g., "start")
	Description string
}

// botCommands is the single source of truth for the command menu.
// /admin is left out since only the admin can use it.
var botCommands = []Command{
	{Name: "start", Description: "Start suggesting listings"},
	{Name: "help", Description: "How to use the bot"},
	{Name: "mode", Description: "Show or set the suggestion pipeline"},
	{Name: "language", Description: "Show or set the translation language"},
	{Name: "products", Description: "List saved products"},
	{Name: "delete", Description: "Delete a saved product"},
	{Name: "cancel", Description: "Discard open suggestions"},
}

// RegisterCommands sets the bot's command menu in Telegram.
// This should be called once at startup.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
