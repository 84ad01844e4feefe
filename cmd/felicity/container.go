package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/accounts"
	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/config"
	"github.com/felicity-dev/felicity/internal/discussion"
	"github.com/felicity-dev/felicity/internal/events"
	"github.com/felicity-dev/felicity/internal/handlers"
	"github.com/felicity-dev/felicity/internal/realtime"
	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/felicity-dev/felicity/internal/router"
	"github.com/felicity-dev/felicity/internal/scheduler"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/teams"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// discussionBackend carries the selected store plus the mongo client, if any,
// so shutdown can disconnect it.
type discussionBackend struct {
	store  discussion.Store
	client *mongo.Client
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	database, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateDatabase(database); err != nil {
		_ = db.Close(database)
		return nil, err
	}

	return database, nil
}

func openDiscussion(cfg config.Config, database *gorm.DB) (*discussionBackend, error) {
	if cfg.DiscussionStore != "mongo" {
		return &discussionBackend{store: discussion.NewSQLStore(database)}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := db.OpenMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	store := discussion.NewMongoStore(client.Database(cfg.MongoDatabase))

	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Printf("Discussion messages stored in mongo database %q", cfg.MongoDatabase)

	return &discussionBackend{store: store, client: client}, nil
}

func newMailer(cfg config.Config) services.Mailer {
	if cfg.SendgridAPIKey == "" {
		log.Println("SENDGRID_API_KEY not set, emails will be logged")
		return services.NewConsoleMailer(log.New(os.Stdout, "[mail] ", log.LstdFlags))
	}
	return services.NewSendgridMailer(cfg.SendgridAPIKey, cfg.FromName, cfg.FromEmail)
}

func newWebhookSender() services.WebhookSender {
	return services.NewWebhookSender(&http.Client{Timeout: 10 * time.Second})
}

func newReporter(cfg config.Config) services.Reporter {
	return services.NewReporter(cfg.RollbarToken, cfg.Environment)
}

func newDispatcher(cfg config.Config, database *gorm.DB, mailer services.Mailer, webhooks services.WebhookSender, reporter services.Reporter) *scheduler.Dispatcher {
	return scheduler.NewDispatcher(database, mailer, webhooks, reporter, scheduler.Options{
		Interval:    cfg.OutboxInterval,
		Batch:       cfg.OutboxBatch,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})
}

func newEngine(cfg config.Config, h *handlers.Handler, issuer *auth.Issuer, database *gorm.DB) *gin.Engine {
	return router.NewRouter(cfg, h, issuer, database)
}

func buildContainer() (*dig.Container, error) {
	c := dig.New()

	providers := []interface{}{
		config.Load,
		openDatabase,
		openDiscussion,
		func(cfg config.Config) (*auth.Issuer, error) {
			return auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
		},
		services.NewOutbox,
		newMailer,
		newWebhookSender,
		newReporter,
		newDispatcher,
		func() *realtime.Hub { return realtime.NewHub(realtime.DefaultBuffer) },
		func(database *gorm.DB, issuer *auth.Issuer, outbox *services.Outbox) *accounts.Service {
			return accounts.NewService(database, issuer, outbox)
		},
		func(database *gorm.DB, outbox *services.Outbox) *events.Service {
			return events.NewService(database, outbox)
		},
		func(database *gorm.DB, outbox *services.Outbox) *registrations.Service {
			return registrations.NewService(database, outbox)
		},
		func(database *gorm.DB, outbox *services.Outbox) *teams.Service {
			return teams.NewService(database, outbox)
		},
		func(backend *discussionBackend, database *gorm.DB, hub *realtime.Hub) *discussion.Service {
			return discussion.NewService(backend.store, database, hub)
		},
		handlers.New,
		newEngine,
	}

	for _, provider := range providers {
		if err := c.Provide(provider); err != nil {
			return nil, err
		}
	}

	return c, nil
}
