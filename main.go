package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"reservations/internal/app"
	"reservations/internal/config"
	infraClients "reservations/internal/infrastructure/clients"
	"reservations/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		panic(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Failed to shut down trace provider")
		}
	}()

	apiClients, err := clients.NewClients(cfg.GatewayAddr, nil)
	if err != nil {
		panic(err)
	}

	deps := app.Deps{
		WatermillLogger: watermill.NewStdLogger(false, false),
		Config:          cfg,
		Spreadsheets:    infraClients.NewSpreadsheetsClient(apiClients),
		Receipts:        infraClients.NewReceiptsClient(apiClients),
		Payments:        infraClients.NewPaymentsClient(apiClients),
	}

	if cfg.Storage == config.StoragePostgres {
		deps.DB = sqlx.MustConnect("postgres", cfg.PostgresURL)
		defer deps.DB.Close()

		deps.RedisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer deps.RedisClient.Close()
	}

	a, err := app.NewApp(deps)
	if err != nil {
		panic(err)
	}

	logrus.WithField("storage", cfg.Storage).Info("Service starting...")

	if err := a.Run(ctx); err != nil {
		panic(err)
	}
}
