package main

import (
	"bidbot/internal/account"
	bidding "bidbot/internal/biddingService"
	"bidbot/internal/clock"
	"bidbot/internal/closer"
	"bidbot/internal/config"
	"bidbot/internal/events"
	"bidbot/internal/notify"
	"bidbot/internal/redisstore"
	"bidbot/internal/repository"
	"bidbot/internal/repository/mysql"
	"bidbot/internal/server"
	"bidbot/internal/session"
	"bidbot/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	notifyTimeout = 10 * time.Second
	liveBuffer    = 64
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		utils.Fatal("Server stopped with error", map[string]any{"error": err.Error()})
	}
}

func run(cfg *config.Config) error {
	utils.Info("Starting BidBot", map[string]any{"config": cfg.String()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	hub := events.NewHub(liveBuffer)
	var (
		publisher    events.Publisher = hub
		sessionStore session.Store    = session.NewMemoryStore()
		marker       closer.Marker    = closer.NewMemoryMarker()
	)

	if cfg.Redis.Enabled {
		client, err := redisstore.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()

		sessionStore = redisstore.NewSessionStore(client)
		marker = redisstore.NewSettlementMarker(client)
		publisher = redisstore.NewEventPublisher(client)

		relay := redisstore.NewEventRelay(client, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				utils.Error("Live event relay stopped", map[string]any{"error": err.Error()})
			}
		}()
		utils.Info("Redis enabled for sessions, settlement and live events", map[string]any{"address": cfg.Redis.Address})
	}

	sender, closeSender, err := newSender(cfg)
	if err != nil {
		return err
	}
	defer closeSender()

	dispatcher := notify.NewDispatcher(notify.NewMailer(sender), cfg.Notify.Workers, cfg.Notify.QueueSize, notifyTimeout)
	defer dispatcher.Close()

	clk := clock.Real{}
	sessions := session.NewManager(sessionStore, clk, cfg.Session.TTL)
	accounts := account.NewService(store.users, sessions, dispatcher, account.WithClock(clk))
	biddingSvc := bidding.NewBiddingService(
		store.auctions,
		bidding.WithClock(clk),
		bidding.WithNotifier(dispatcher),
		bidding.WithPublisher(publisher),
		bidding.WithRetryPolicy(cfg.Bidding.MaxCommitRetries, cfg.Bidding.RetryBackoff),
	)

	if cfg.Seed.DemoItems {
		seedDemoItems(ctx, biddingSvc, clk)
	}

	auctionCloser := closer.New(store.auctions, marker, dispatcher, publisher, clk, cfg.Closer.Schedule)
	if err := auctionCloser.Start(ctx); err != nil {
		return err
	}
	defer auctionCloser.Stop()

	router := server.SetupRouter(server.Dependencies{
		Bidding:  biddingSvc,
		Accounts: accounts,
		Sessions: sessions,
		Feed:     hub,
		Health:   store.ping,

		Clock:          clk,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utils.Info("Starting auction server", map[string]any{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		utils.Info("Shutting down auction server", map[string]any{"signal": sig.String()})
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	utils.Info("Auction server stopped", nil)
	return nil
}

// storage bundles the repositories of the configured backend
type storage struct {
	auctions repository.AuctionDB
	users    repository.UserStore
	ping     func(ctx context.Context) error
	close    func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMySQL:
		if cfg.MySQL.Migrate {
			if err := mysql.Migrate(cfg.MySQL.DSN); err != nil {
				return nil, err
			}
			utils.Info("Database migrations applied", nil)
		}

		db, err := mysql.Open(ctx, cfg.MySQL.DSN, mysql.Options{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		utils.Info("Using MySQL storage", nil)

		return &storage{
			auctions: mysql.NewAuctionRepository(db),
			users:    mysql.NewUserRepository(db),
			ping:     db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					utils.Warn("Failed to close database", map[string]any{"error": err.Error()})
				}
			},
		}, nil
	default:
		utils.Info("Using in-memory storage", nil)
		return &storage{
			auctions: repository.NewMemoryRepo(),
			users:    repository.NewMemoryUserRepo(),
			close:    func() {},
		}, nil
	}
}

// newSender builds the delivery backend for notifications. The returned
// func releases any connection it holds.
func newSender(cfg *config.Config) (notify.Sender, func(), error) {
	switch cfg.Notify.Driver {
	case config.NotifySMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}), func() {}, nil

	case config.NotifyAMQP:
		conn, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp: dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("amqp: open channel: %w", err)
		}
		sender, err := notify.NewAMQPSender(ch, notify.Topology{Exchange: cfg.AMQP.Exchange, Queue: cfg.AMQP.Queue})
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, err
		}
		utils.Info("Publishing notifications to RabbitMQ", map[string]any{"exchange": cfg.AMQP.Exchange})
		return sender, func() {
			ch.Close()
			conn.Close()
		}, nil

	default:
		return notify.LogSender{}, func() {}, nil
	}
}

// seedDemoItems lists a few sample items so a fresh server has something to bid on
func seedDemoItems(ctx context.Context, svc *bidding.BiddingService, clk clock.Clock) {
	endTime := clk.Now().Add(24 * time.Hour)
	items := []bidding.NewItem{
		{Name: "Vintage brass lamp", Description: "Working condition, rewired in 2019", StartingBid: 100, EndTime: endTime},
		{Name: "Oak writing desk", Description: "Solid oak with two drawers", StartingBid: 200, EndTime: endTime},
		{Name: "Film camera", Description: "35mm rangefinder with case", StartingBid: 150, EndTime: endTime},
	}

	for _, item := range items {
		item.OwnerID = "demo@bidbot.local"
		created, err := svc.CreateItem(ctx, item)
		if err != nil {
			utils.Warn("Failed to seed demo item", map[string]any{"name": item.Name, "error": err.Error()})
			continue
		}
		utils.Info("Seeded demo item", map[string]any{"item_id": created.ItemID, "name": created.Name})
	}
}
