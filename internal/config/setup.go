package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Validation endpoints, overridden in tests.
var (
	telegramAPIBase = "https://api.telegram.org"
	visionAPIBase   = "https://vision.googleapis.com"
	geminiAPIBase   = "https://generativelanguage.googleapis.com"
)

var setupClient = resty.New().SetTimeout(10 * time.Second)

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunSetupWizard collects the required configuration interactively and
// writes it to the config file. Returns true if the bot should continue
// starting.
func RunSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🕯  Candle Listing Bot - First-time Setup"))
	fmt.Println()

	var botToken, visionKey, geminiKey, adminID string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&botToken).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return validateTelegramToken(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Google Cloud Vision API Key").
				Description("Create one in the Google Cloud console with the Vision API enabled").
				Value(&visionKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					return validateVisionKey(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key (optional)").
				Description("Enables the AI pipeline and translation. https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validateGeminiKey(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&adminID).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("user ID is required")
					}
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return errors.New("must be a number")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		EnvBotToken:     botToken,
		EnvVisionAPIKey: visionKey,
		EnvAdminID:      adminID,
	}
	if geminiKey != "" {
		values[EnvGeminiAPIKey] = geminiKey
	}

	configPath, err := FilePath()
	if err == nil {
		err = writeEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting bot...")
	fmt.Println()

	return true
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// validateTelegramToken validates a Telegram bot token by calling the getMe API.
func validateTelegramToken(token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}

	_, err := setupClient.R().
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/bot%s/getMe", telegramAPIBase, token))
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}
	return nil
}

// validateVisionKey sends an empty annotate batch, which costs nothing but
// still checks the key and that the API is enabled.
func validateVisionKey(key string) error {
	var apiErr apiError
	resp, err := setupClient.R().
		SetQueryParam("key", key).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"requests":[]}`).
		SetError(&apiErr).
		Post(visionAPIBase + "/v1/images:annotate")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}
	return checkKeyResponse(resp, &apiErr)
}

// validateGeminiKey validates a Gemini API key with the lightweight models list endpoint.
func validateGeminiKey(key string) error {
	var apiErr apiError
	resp, err := setupClient.R().
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get(geminiAPIBase + "/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}
	return checkKeyResponse(resp, &apiErr)
}

func checkKeyResponse(resp *resty.Response, apiErr *apiError) error {
	switch code := resp.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", code)
	case code != 200:
		return fmt.Errorf("unexpected response (HTTP %d)", code)
	}
	return nil
}

// writeEnvFile writes the configuration with restrictive permissions (0600)
// since the file contains secrets.
func writeEnvFile(path string, values map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Consistent order, quoted values
	order := []string{EnvBotToken, EnvVisionAPIKey, EnvGeminiAPIKey, EnvAdminID, EnvDBPath, EnvDefaultMode, EnvCacheMaxAge}
	for _, key := range order {
		if val, ok := values[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}
	return nil
}

// WaitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs a fatal error and waits on Windows before exiting.
func FatalWithWait(format string, args ...any) {
	log.Error().Msgf(format, args...)
	WaitOnWindows()
	os.Exit(1)
}
