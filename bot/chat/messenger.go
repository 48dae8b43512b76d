package chat

// Messenger is the platform UI adapter interface.
// Each platform implements this to handle platform-specific message delivery.
type Messenger interface {
	SendText(chatID, text string) error
	SendPrompt(chatID string, prompt Prompt) error
	AnswerCallback(callbackID, text string) error
}

// Prompt is a rendered step or menu: text with an optional photo or audio
// attachment and an inline button grid.
type Prompt struct {
	Text     string
	PhotoURL string
	Audio    *Audio
	Rows     [][]InlineButton
}

// Audio describes an audio resource with its display metadata.
type Audio struct {
	URL       string
	Title     string
	Performer string
}

// InlineButton represents an inline button. Exactly one of Data (routed back
// as a callback) or URL (opened externally) is set.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// UserInput represents a normalized event from any platform.
type UserInput struct {
	Text         string     // Regular message text
	CallbackData string     // Inline button press
	CallbackID   string     // Platform id of the press, used for acknowledgement
	File         *FileInput // Uploaded document, photo or audio
}

// FileInput describes an uploaded file by its platform id.
type FileInput struct {
	FileID   string
	FileName string
	MIMEType string
	Size     int64
}

// Buttons returns every button of the prompt in row order.
func (p Prompt) Buttons() []InlineButton {
	var all []InlineButton
	for _, row := range p.Rows {
		all = append(all, row...)
	}
	return all
}
