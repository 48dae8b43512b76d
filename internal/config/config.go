package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		AdminId int64  `yaml:"admin_id" env:"TELEGRAM_ADMIN_ID" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"GreenBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	OpenAI struct {
		ApiKey string `yaml:"api_key" env:"OPENAI_API_KEY" env-default:""`
		Model  string `yaml:"model" env-default:"gpt-4o-mini"`
	} `yaml:"openai"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"greenbot"`
	} `yaml:"mongo"`
	Listen struct {
		BindIP     string        `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port       string        `yaml:"port" env-default:"9100"`
		ApiKey     string        `yaml:"key" env:"API_KEY" env-default:""`
		FileSecret string        `yaml:"file_secret" env:"FILE_URL_SECRET" env-default:""`
		FileURLTTL time.Duration `yaml:"file_url_ttl" env-default:"15m"`
	} `yaml:"listen"`
	GreenBot struct {
		ListenerTTL    time.Duration `yaml:"listener_ttl" env-default:"24h"`
		InsertPolicy   string        `yaml:"insert_policy" env-default:"renumber"`
		MaxQuestions   int           `yaml:"max_questions" env-default:"10"`
		PublishedLimit int           `yaml:"published_limit" env-default:"20"`
	} `yaml:"greenbot"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
