package main

import (
	"context"
	"net/http"
	"os"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/db/sqlite"
	"github.com/iamwavecut/guardbot/internal/event"
	"github.com/iamwavecut/guardbot/internal/handlers"
	"github.com/iamwavecut/guardbot/internal/infra"
	"github.com/iamwavecut/guardbot/internal/lifecycle"
	"github.com/iamwavecut/guardbot/internal/moderation"
	"github.com/iamwavecut/guardbot/internal/observability"
	"github.com/iamwavecut/guardbot/internal/telegram"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.GbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	infra.GoRecoverable(-1, "main", func() {
		if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
			log.WithError(err).Fatalln("cant initialize observability")
		}
		defer func() { _ = observability.Logger.Sync() }()

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		// the long-polling client stays deadline-free, enforcement calls
		// get their own bounded client
		actionAPI, err := api.NewBotAPIWithClient(cfg.TelegramAPIToken, api.APIEndpoint, &http.Client{Timeout: cfg.APITimeout})
		if err != nil {
			log.WithError(err).Fatalln("cant initialize action bot api")
		}

		store := sqlite.NewSQLiteClient("guardbot.db")
		defer store.Close()

		service := bot.NewService(botAPI, store)
		operations := telegram.NewOperations(actionAPI)
		scheduler := event.NewScheduler(operations)

		policy := moderation.NewPolicy(cfg.Moderation, cfg.Flood)
		tracker, err := newTracker(cfg.Flood)
		if err != nil {
			log.WithError(err).Fatalln("cant initialize flood tracker")
		}
		ledger := moderation.NewLedger(store)
		resolver := moderation.NewPrivilegeResolver(operations)
		enforcer := moderation.NewEnforcer(operations, ledger, tracker, resolver, policy, scheduler, botAPI.Self.ID)

		services := lifecycle.NewRuntime(scheduler)
		if err := services.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start services")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := services.Stop(stopCtx); err != nil {
				log.WithError(err).Error("cant stop services cleanly")
			}
		}()

		bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service, enforcer, resolver, scheduler))
		bot.RegisterUpdateHandler("reactor", handlers.NewReactor(service, enforcer))
		bot.RegisterUpdateHandler("welcome", handlers.NewWelcome(service, scheduler))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor(service)

		updateChan := botAPI.GetUpdatesChan(updateConfig)
		for {
			select {
			case <-ctx.Done():
				log.WithError(ctx.Err()).Errorln("no more updates")
				return
			case update, ok := <-updateChan:
				if !ok {
					return
				}
				if err := updateProcessor.Process(ctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			}
		}
	})

	select {
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	case <-ctx.Done():
	}
	os.Exit(0)
}

func newTracker(cfg config.Flood) (moderation.Tracker, error) {
	if cfg.Store == config.FloodStoreRedis {
		return moderation.NewRedisTracker(cfg.RedisURL, cfg.RateLimitCount, cfg.RateLimitPeriod)
	}
	return moderation.NewMemTracker(cfg.RateLimitCount, cfg.RateLimitPeriod)
}
