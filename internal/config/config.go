package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string        `env:"TOKEN,required"`
		DefaultLanguage  string        `env:"LANG,default=en"`
		EnabledHandlers  []string      `env:"HANDLERS,default=admin,reactor,welcome"`
		LogLevel         int           `env:"LOG_LEVEL,default=2"`
		DotPath          string        `env:"DOT_PATH,default=~/.guardbot"`
		MetricsAddr      string        `env:"METRICS_ADDR,default=:2112"`
		APITimeout       time.Duration `env:"API_TIMEOUT,default=30s"`
		Moderation       Moderation
		Flood            Flood
	}

	Moderation struct {
		WarnThreshold   int           `env:"WARN_THRESHOLD,default=3"`
		MuteDuration    time.Duration `env:"MUTE_DURATION,default=15m"`
		KickOnThreshold string        `env:"KICK_ON_THRESHOLD,default=temporary"`
		NoticeTTL       time.Duration `env:"NOTICE_TTL,default=10s"`
		BannedWords     []string      `env:"BANNED_WORDS,default=fuck,fucker,motherfucker,bitch,bastard,asshole,slut,whore,madarchod,behenchod,bhosdike,chutiya,gandu,randi,harami,bsdk,mc,bc"`
		LinkPatterns    []string      `env:"LINK_PATTERNS,default=http://,https://,t.me/,telegram.me/,bit.ly/"`
	}

	Flood struct {
		RateLimitCount  int           `env:"RATE_LIMIT_COUNT,default=5"`
		RateLimitPeriod time.Duration `env:"RATE_LIMIT_PERIOD,default=5s"`
		Store           string        `env:"FLOOD_STORE,default=memory"`
		RedisURL        string        `env:"REDIS_URL"`
	}
)

const (
	KickModeTemporary = "temporary"
	KickModePermanent = "permanent"

	FloodStoreMemory = "memory"
	FloodStoreRedis  = "redis"
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
			Lookuper: envconfig.PrefixLookuper("GB_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		if cfg.Moderation.KickOnThreshold != KickModeTemporary && cfg.Moderation.KickOnThreshold != KickModePermanent {
			log.Warnf("unknown kick mode %q, falling back to temporary", cfg.Moderation.KickOnThreshold)
			cfg.Moderation.KickOnThreshold = KickModeTemporary
		}
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
