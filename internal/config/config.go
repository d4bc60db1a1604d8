package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		DotPath     string `env:"DOT_PATH,default=~/.swapspot"`
		DBPath      string `env:"DB_PATH,default=swapspot.db"`
		LogLevel    int    `env:"LOG_LEVEL,default=4"`
		MetricsPort int    `env:"METRICS_PORT,default=2112"`
		Moderation  Moderation
		LLM         LLM
	}

	Moderation struct {
		SpamThreshold   int           `env:"MODERATION_SPAM_THRESHOLD,default=3"`
		ReportThreshold int           `env:"MODERATION_REPORT_THRESHOLD,default=3"`
		SpamWindow      time.Duration `env:"MODERATION_SPAM_WINDOW,default=1h"`
		AutoBanDuration time.Duration `env:"MODERATION_AUTO_BAN_DURATION,default=168h"`
		JanitorInterval time.Duration `env:"MODERATION_JANITOR_INTERVAL,default=1h"`
		RulesPath       string        `env:"MODERATION_RULES_PATH"`
	}

	LLM struct {
		APIKey string `env:"LLM_API_KEY"`
		Model  string `env:"LLM_API_MODEL,default=gemini-2.5-flash-lite"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("SWAPSPOT_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		dotPath, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = dotPath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
