package telegram

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"GreenBot/bot/chat"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// TelegramAPI defines the Telegram bot methods needed by the messenger.
// This avoids importing the concrete bot type and prevents circular imports.
type TelegramAPI interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
	SendPhoto(chatId int64, photo tgbotapi.InputFileOrString, opts *tgbotapi.SendPhotoOpts) (*tgbotapi.Message, error)
	SendAudio(chatId int64, audio tgbotapi.InputFileOrString, opts *tgbotapi.SendAudioOpts) (*tgbotapi.Message, error)
	AnswerCallbackQuery(callbackQueryId string, opts *tgbotapi.AnswerCallbackQueryOpts) (bool, error)
	GetFile(fileId string, opts *tgbotapi.GetFileOpts) (*tgbotapi.File, error)
}

// FileURLFunc builds a download URL for a file returned by GetFile.
type FileURLFunc func(f *tgbotapi.File) string

// Messenger implements chat.Messenger for Telegram using inline keyboards.
type Messenger struct {
	api     TelegramAPI
	fileURL FileURLFunc
	client  *http.Client
}

// NewMessenger creates a new Telegram Messenger.
func NewMessenger(api TelegramAPI, fileURL FileURLFunc) *Messenger {
	return &Messenger{
		api:     api,
		fileURL: fileURL,
		client:  http.DefaultClient,
	}
}

func (m *Messenger) SendText(chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = m.api.SendMessage(id, text, &tgbotapi.SendMessageOpts{
		ParseMode: "HTML",
	})
	return err
}

// SendPrompt sends the prompt as a photo, an audio or a plain message,
// depending on what it carries. The keyboard is attached in every case.
func (m *Messenger) SendPrompt(chatID string, prompt chat.Prompt) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}

	var markup tgbotapi.ReplyMarkup
	if len(prompt.Rows) > 0 {
		markup = inlineKeyboard(prompt.Rows)
	}

	switch {
	case prompt.Audio != nil:
		_, err = m.api.SendAudio(id, tgbotapi.InputFileByURL(prompt.Audio.URL), &tgbotapi.SendAudioOpts{
			Caption:     prompt.Text,
			ParseMode:   "HTML",
			Title:       prompt.Audio.Title,
			Performer:   prompt.Audio.Performer,
			ReplyMarkup: markup,
		})
	case prompt.PhotoURL != "":
		_, err = m.api.SendPhoto(id, tgbotapi.InputFileByURL(prompt.PhotoURL), &tgbotapi.SendPhotoOpts{
			Caption:     prompt.Text,
			ParseMode:   "HTML",
			ReplyMarkup: markup,
		})
	default:
		_, err = m.api.SendMessage(id, prompt.Text, &tgbotapi.SendMessageOpts{
			ParseMode:   "HTML",
			ReplyMarkup: markup,
		})
	}
	return err
}

func (m *Messenger) AnswerCallback(callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	_, err := m.api.AnswerCallbackQuery(callbackID, &tgbotapi.AnswerCallbackQueryOpts{
		Text: text,
	})
	return err
}

// OpenFile downloads an uploaded file by its Telegram file id.
// The caller must close the returned reader.
func (m *Messenger) OpenFile(fileID string) (io.ReadCloser, error) {
	file, err := m.api.GetFile(fileID, nil)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if m.fileURL == nil {
		return nil, fmt.Errorf("file download not configured")
	}
	resp, err := m.client.Get(m.fileURL(file))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func inlineKeyboard(rows [][]chat.InlineButton) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		keyboard[i] = make([]tgbotapi.InlineKeyboardButton, len(row))
		for j, btn := range row {
			keyboard[i][j] = tgbotapi.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.Data,
				Url:          btn.URL,
			}
		}
	}
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: keyboard,
	}
}
