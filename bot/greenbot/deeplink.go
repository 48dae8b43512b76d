package greenbot

import (
	"strings"
)

// Deep link type constants
const (
	DeepLinkTypeProcess = "process"
)

// DeepLink is a parsed /start parameter.
type DeepLink struct {
	Type string
	Code string
}

// ParseDeepLink parses a deep link code from a /start command.
// Format: "type_code" (e.g., "process_65f0c1..."); a bare code is taken
// as a process id.
func ParseDeepLink(startParam string) *DeepLink {
	startParam = strings.TrimSpace(startParam)
	if startParam == "" {
		return nil
	}

	parts := strings.SplitN(startParam, "_", 2)
	if len(parts) < 2 {
		return &DeepLink{Type: DeepLinkTypeProcess, Code: startParam}
	}

	return &DeepLink{
		Type: parts[0],
		Code: parts[1],
	}
}

// ExtractStartParam extracts the parameter from a /start command message.
// Returns empty string if no parameter present.
func ExtractStartParam(messageText string) string {
	// Message format: "/start CODE" or just "/start"
	messageText = strings.TrimSpace(messageText)

	if !strings.HasPrefix(messageText, "/start") {
		return ""
	}

	rest := strings.TrimPrefix(messageText, "/start")
	return strings.TrimSpace(rest)
}

// ProcessID returns the process id of a process link.
func (d *DeepLink) ProcessID() string {
	if d == nil || d.Type != DeepLinkTypeProcess {
		return ""
	}
	return d.Code
}

// ProcessLink builds the t.me start link that opens a process.
func ProcessLink(botName, processID string) string {
	return "https://t.me/" + botName + "?start=" + DeepLinkTypeProcess + "_" + processID
}
