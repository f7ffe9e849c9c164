package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"beverageHub/business/receipt"
	"beverageHub/internal/queue"
	"beverageHub/internal/repository/notification"
	psqlRepo "beverageHub/internal/repository/postgres"
	"beverageHub/pkg/database"
	"beverageHub/pkg/logger"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Send payment receipts for payment.completed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if cfg.RabbitMQ.URL == "" {
				return errors.New("RABBITMQ_URL is not set")
			}

			mailjet := notification.NewMailjetRepository(notification.MailjetConfig{
				MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
				MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
				MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
				MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
				MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
			})
			if !mailjet.IsConfigured() {
				logger.Warn("Mailjet is not configured, receipts will be skipped")
			}

			receipts := receipt.NewReceiptService(psqlRepo.NewUserRepository(db), mailjet)
			consumer := queue.NewConsumer(cfg.RabbitMQ.URL, receipts.SendPaymentReceipt)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Receipt worker started", "queue", queue.PaymentCompletedQueue)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker: %w", err)
			}

			logger.Info("Receipt worker stopped")
			return nil
		},
	}
}
