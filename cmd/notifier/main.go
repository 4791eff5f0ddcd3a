// Command notifier consumes domain events from RabbitMQ and sends the
// matching emails (welcome, booking confirmations, receipts, intake alerts).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/lingoschool/internal/bootstrap"
	"github.com/yigit/lingoschool/internal/pkg/email"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/logger"
	"github.com/yigit/lingoschool/internal/pkg/mq"
)

func main() {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger("notifier")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if !cfg.RabbitMQ.Enabled {
		lgr.Error().Msg("RabbitMQ is disabled; the API sends emails itself and the notifier has nothing to do")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = lgr.WithContext(ctx)

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Bindings: cfg.RabbitMQ.Bindings,
		Prefetch: cfg.RabbitMQ.Prefetch,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		os.Exit(1)
	}

	dispatcher := events.NewEmailDispatcher(
		bootstrap.NewEmailSender(cfg, lgr),
		email.Composer{School: cfg.School.Name},
	)

	lgr.Info().Str("queue", cfg.RabbitMQ.Queue).Strs("bindings", cfg.RabbitMQ.Bindings).Msg("Notifier consuming events")
	runErr := consumer.Run(ctx, dispatcher.Handle)
	if err := consumer.Close(); err != nil {
		lgr.Warn().Err(err).Msg("Failed to close RabbitMQ connection")
	}
	if runErr != nil {
		lgr.Error().Err(runErr).Msg("Consumer stopped with error")
		os.Exit(1)
	}
	lgr.Info().Msg("Notifier stopped.")
}
