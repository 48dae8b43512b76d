package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"GreenBot/bot/chat"
	"GreenBot/bot/greenbot"
	"GreenBot/internal/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

const fileAPIURL = "https://api.telegram.org/file/bot"

// TgBot is the Telegram front end of the process navigator. It also
// forwards operator notifications to the admin chat.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
	engine      *greenbot.Engine
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// API exposes the bot client for the chat messenger.
func (t *TgBot) API() *tgbotapi.Bot {
	return t.api
}

// FileURL builds the download URL of a file returned by GetFile.
func (t *TgBot) FileURL(f *tgbotapi.File) string {
	return fileAPIURL + t.api.Token + "/" + f.FilePath
}

// SetEngine sets the engine that handles chat events.
func (t *TgBot) SetEngine(engine *greenbot.Engine) {
	t.engine = engine
}

// Start begins polling for updates and handling them.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		// If an error is returned by a handler, log it and continue going.
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	for _, command := range []string{
		greenbot.CommandStart,
		greenbot.CommandReset,
		greenbot.CommandRestart,
		greenbot.CommandMy,
		greenbot.CommandNew,
	} {
		dispatcher.AddHandler(handlers.NewCommand(command, t.handleCommand))
	}
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.All, t.handleCallback))
	dispatcher.AddHandler(handlers.NewMessage(message.Document, t.handleFile))
	dispatcher.AddHandler(handlers.NewMessage(message.Photo, t.handleFile))
	dispatcher.AddHandler(handlers.NewMessage(message.Audio, t.handleFile))
	dispatcher.AddHandler(handlers.NewMessage(message.Voice, t.handleFile))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, t.handleMessage))

	err := updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.log.Info("greenbot started", slog.String("username", t.botUsername))

	// Idle, to keep updates coming in
	updater.Idle()

	return nil
}

// SendMessage sends a plain text notification to the admin chat.
func (t *TgBot) SendMessage(msg string) {
	if t.adminId == 0 || msg == "" {
		return
	}
	_, err := t.api.SendMessage(t.adminId, msg, nil)
	if err != nil {
		t.log.With(
			slog.Int64("id", t.adminId),
		).Debug("sending admin message", sl.Err(err))
	}
}

func (t *TgBot) handleCommand(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.engine == nil {
		return nil
	}
	args := ctx.Args()
	if len(args) == 0 {
		return nil
	}
	command := strings.TrimPrefix(args[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	t.engine.HandleCommand(context.Background(), chatID(ctx), command, strings.Join(args[1:], " "))
	return nil
}

func (t *TgBot) handleCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.engine == nil {
		return nil
	}
	cq := ctx.CallbackQuery
	t.engine.HandleCallback(context.Background(), chatID(ctx), cq.Id, cq.Data)
	return nil
}

func (t *TgBot) handleMessage(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.engine == nil {
		return nil
	}
	t.engine.HandleMessage(context.Background(), chatID(ctx), ctx.EffectiveMessage.Text)
	return nil
}

func (t *TgBot) handleFile(_ *tgbotapi.Bot, ctx *ext.Context) error {
	if t.engine == nil {
		return nil
	}
	file, ok := fileInput(ctx.EffectiveMessage)
	if !ok {
		return nil
	}
	t.engine.HandleFile(context.Background(), chatID(ctx), file)
	return nil
}

func chatID(ctx *ext.Context) string {
	return strconv.FormatInt(ctx.EffectiveChat.Id, 10)
}

// fileInput picks the uploaded file of a message. For photos the largest
// size is taken.
func fileInput(msg *tgbotapi.Message) (chat.FileInput, bool) {
	switch {
	case msg.Document != nil:
		return chat.FileInput{
			FileID:   msg.Document.FileId,
			FileName: msg.Document.FileName,
			MIMEType: msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}, true
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return chat.FileInput{
			FileID:   photo.FileId,
			FileName: photo.FileUniqueId + ".jpg",
			MIMEType: "image/jpeg",
			Size:     photo.FileSize,
		}, true
	case msg.Audio != nil:
		return chat.FileInput{
			FileID:   msg.Audio.FileId,
			FileName: msg.Audio.FileName,
			MIMEType: msg.Audio.MimeType,
			Size:     msg.Audio.FileSize,
		}, true
	case msg.Voice != nil:
		return chat.FileInput{
			FileID:   msg.Voice.FileId,
			FileName: msg.Voice.FileUniqueId + ".ogg",
			MIMEType: msg.Voice.MimeType,
			Size:     msg.Voice.FileSize,
		}, true
	}
	return chat.FileInput{}, false
}
