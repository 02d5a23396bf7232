package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"

	"github.com/philosothon/philosothon/apps/shared"
	"github.com/philosothon/philosothon/core"
	logsvc "github.com/philosothon/philosothon/services/logger"
)

func main() {
	conf := core.NewConfig()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: !conf.Debug}).With().Timestamp().Str("app", "bot").Logger()
	logger := logsvc.NewRollbarLogger(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: !conf.Debug}, conf)
	logger.Enable(!conf.Debug)

	if conf.Telegram.Token == "" {
		log.Fatal().Msg("telegram token is not set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := shared.Setup(ctx, conf, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("setting up services")
	}
	defer func() { _ = deps.Close() }()

	h := newChatHandler(deps.RegSvc, log)
	b, err := bot.New(conf.Telegram.Token, bot.WithDefaultHandler(h.Handle))
	if err != nil {
		log.Fatal().Err(err).Msg("creating bot")
	}

	log.Info().Str("env", conf.Env).Msg("bot started")
	b.Start(ctx)
	log.Info().Msg("bot stopped")
}
