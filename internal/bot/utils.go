package bot

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/candle-listing-bot/internal/llm"
)

const productListLimit = 20

func formatReplyText(text string, a ...any) string {
	text = strings.TrimSpace(dedent.Dedent(text))
	if len(a) == 0 {
		return text
	}
	return fmt.Sprintf(text, a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups arrive as /mode@botname
	command, _, _ := strings.Cut(parts[0], "@")
	return strings.ToLower(command), parts[1:]
}

var correctionRegex = regexp.MustCompile(`(?is)^\s*(title|description|desc|price|colou?r|type|style)\s*:\s*(.+?)\s*$`)

// parseCorrection splits a "field: value" message. Field names are
// normalized to title, description, price, color, type or style.
func parseCorrection(text string) (field, value string, ok bool) {
	m := correctionRegex.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	field = strings.ToLower(m[1])
	switch field {
	case "desc":
		field = "description"
	case "colour":
		field = "color"
	}
	return field, m[2], true
}

// priceRegex matches "45", "45.50", "1 200", "45,50€", "€45", "45 eur", "$45".
var priceRegex = regexp.MustCompile(`(?i)^[€$]?\s*(\d+(?:\s\d+)*(?:[.,]\d+)?)\s*(?:€|e|eur|\$|usd)?$`)

// parsePrice parses a price rounded to cents.
func parsePrice(text string) (float64, error) {
	m := priceRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, errInvalidPrice
	}
	// Remove thousands separators and use a dot for decimals
	priceStr := strings.ReplaceAll(m[1], " ", "")
	priceStr = strings.Replace(priceStr, ",", ".", 1)
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price <= 0 {
		return 0, errInvalidPrice
	}
	return math.Round(price*100) / 100, nil
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f", p)
}

var languageCodeRegex = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]{2})?$`)

func languageLabel(code string) string {
	if name := llm.LanguageName(code); name != code {
		return fmt.Sprintf("%s (%s)", name, code)
	}
	return code
}
