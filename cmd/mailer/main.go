// Command mailer drains the notification queue and delivers each message
// through the configured SMTP relay.
package main

import (
	"bidbot/internal/config"
	"bidbot/internal/notify"
	"bidbot/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		utils.Fatal("Mailer stopped with error", map[string]any{"error": err.Error()})
	}
}

func run(cfg *config.Config) error {
	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return fmt.Errorf("amqp: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: open channel: %w", err)
	}
	defer ch.Close()

	// one unacknowledged message at a time keeps a slow relay from hoarding the queue
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("amqp: set qos: %w", err)
	}

	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	consumer, err := notify.NewConsumer(ch, notify.Topology{Exchange: cfg.AMQP.Exchange, Queue: cfg.AMQP.Queue}, sender)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		utils.Info("Shutting down mailer", map[string]any{"signal": sig.String()})
		cancel()
	}()

	utils.Info("Mailer started", map[string]any{
		"queue":     cfg.AMQP.Queue,
		"smtp_host": cfg.SMTP.Host,
		"smtp_port": cfg.SMTP.Port,
	})

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	utils.Info("Mailer stopped", nil)
	return nil
}
