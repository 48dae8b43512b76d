package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumberedInline creates a numbered text list from inline buttons.
func FormatNumberedInline(text string, buttons []InlineButton) string {
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")

	for i, btn := range buttons {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, btn.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MatchNumberToInline converts a number string to the corresponding inline button data.
func MatchNumberToInline(text string, buttons []InlineButton) string {
	text = strings.TrimSpace(text)
	num, err := strconv.Atoi(text)
	if err != nil || num < 1 || num > len(buttons) {
		return ""
	}
	return buttons[num-1].Data
}

// MatchTextToInline returns the data of the button whose label equals text,
// ignoring case and surrounding spaces.
func MatchTextToInline(text string, buttons []InlineButton) string {
	text = strings.TrimSpace(text)
	for _, btn := range buttons {
		if btn.Data != "" && strings.EqualFold(btn.Text, text) {
			return btn.Data
		}
	}
	return ""
}
