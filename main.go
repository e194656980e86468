package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jax91/bot-iptv-whatsapp/app/client/wagate"
	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/server"
	"github.com/jax91/bot-iptv-whatsapp/app/service/conversation"
	"github.com/jax91/bot-iptv-whatsapp/app/service/engine"
	"github.com/jax91/bot-iptv-whatsapp/app/service/notify"
	"github.com/jax91/bot-iptv-whatsapp/app/service/payment"
	"github.com/jax91/bot-iptv-whatsapp/app/service/queue"
	"github.com/jax91/bot-iptv-whatsapp/app/service/session"
	"github.com/jax91/bot-iptv-whatsapp/app/service/trial"
	"github.com/jax91/bot-iptv-whatsapp/app/store"
	"github.com/jax91/bot-iptv-whatsapp/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, wagate.NewClient)
	do.Provide(di, store.New)
	do.Provide(di, session.New)
	do.Provide(di, trial.New)
	do.Provide(di, payment.New)
	do.Provide(di, conversation.New)
	do.Provide(di, notify.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*session.Service](di).RunSweep(appCtx)

	go do.MustInvoke[*notify.Service](di).Run(appCtx)

	go do.MustInvoke[*engine.Service](di).Run(appCtx)
	go do.MustInvoke[*server.Server](di).Run(appCtx)

	<-appCtx.Done()
}
