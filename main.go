package main

import (
	"GreenBot/ai/gpt"
	"GreenBot/bot"
	"GreenBot/bot/chat/telegram"
	"GreenBot/bot/greenbot"
	"GreenBot/impl/core"
	"GreenBot/internal/config"
	"GreenBot/internal/database"
	"GreenBot/internal/http-server/api"
	"GreenBot/internal/lib/logger"
	"GreenBot/internal/lib/sl"
	"GreenBot/internal/ws"
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting greenbot", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db == nil {
		lg.Error("mongo storage is required, enable it in config")
		os.Exit(1)
	}
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("user", conf.Mongo.User),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err = db.EnsureIndexes(ctx); err != nil {
		lg.With(sl.Err(err)).Warn("ensure indexes")
	}
	cancel()

	hub := ws.NewHub(lg)
	go hub.Run()

	editor := greenbot.NewEditor(db, greenbot.ParseSequencePolicy(conf.GreenBot.InsertPolicy), lg)
	editor.SetNotifier(hub)
	lifecycle := greenbot.NewLifecycle(db, lg)
	lifecycle.SetNotifier(hub)

	handler := core.New(lg)
	handler.SetAuthKey(conf.Listen.ApiKey)
	handler.SetRepository(db)
	handler.SetFileStorage(db)
	handler.SetEditor(editor)
	handler.SetLifecycle(lifecycle)
	handler.SetFileSigning(conf.Listen.FileSecret, conf.Listen.FileURLTTL)

	var generator greenbot.QuestionGenerator
	if conf.OpenAI.ApiKey != "" {
		generator = gpt.NewQuestionGenerator(conf.OpenAI.ApiKey, conf.OpenAI.Model, lg)
		lg.With(slog.String("model", conf.OpenAI.Model)).Info("question generator initialized")
	}

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelDebug)

			messenger := telegram.NewMessenger(tgBot.API(), tgBot.FileURL)
			db.SetFileOpener(messenger)

			listeners := greenbot.NewListeners(conf.GreenBot.ListenerTTL)
			registry := greenbot.NewRegistry(greenbot.PresenterDeps{
				Store:        db,
				Validator:    handler,
				Generator:    generator,
				Archiver:     db,
				MaxQuestions: conf.GreenBot.MaxQuestions,
				Log:          lg,
			})
			nav := greenbot.NewNavigator(db, db, db, messenger, registry, listeners, lg)
			menu := greenbot.NewMenu(greenbot.MenuDeps{
				Store:          db,
				Editor:         editor,
				Lifecycle:      lifecycle,
				Navigator:      nav,
				Sessions:       db,
				Listeners:      listeners,
				Messenger:      messenger,
				BotName:        conf.Telegram.BotName,
				PublishedLimit: conf.GreenBot.PublishedLimit,
			}, lg)
			tgBot.SetEngine(greenbot.NewEngine(nav, menu, db, listeners, messenger, lg))

			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
				slog.String("insert_policy", conf.GreenBot.InsertPolicy),
			).Info("telegram bot initialized")

			go func() {
				if err := tgBot.Start(); err != nil {
					lg.Error("telegram bot error", sl.Err(err))
				}
			}()
		}
	}

	// Start the API server (blocking)
	if err = api.New(conf, lg, handler, hub); err != nil {
		lg.Error("server stopped", sl.Err(err))
	}
}
