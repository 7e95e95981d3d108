package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"campusmarket/internal/app/middleware"
	appoutbox "campusmarket/internal/app/outbox"
	"campusmarket/internal/app/uow"
	domainauth "campusmarket/internal/domain/auth"
	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/config"
	mongostore "campusmarket/internal/infra/db/mongo"
	outboxstore "campusmarket/internal/infra/outbox"
	"campusmarket/internal/infra/storage/memory"
)

type userStore interface {
	domainuser.Repository
	domainuser.ActivityStore
}

type outboxQueue interface {
	appoutbox.Outbox
	appoutbox.Queue
}

// stores is the persistence surface shared by every component, whichever
// backend serves it.
type stores struct {
	users         userStore
	accounts      domainauth.AccountStore
	sessions      domainauth.SessionStore
	listings      domainlistings.ListingRepository
	conversations domainmessaging.ConversationRepository
	messages      domainmessaging.MessageRepository
	factory       uow.UoWFactory
	outbox        outboxQueue
	idempotency   middleware.IdempotencyStore

	ready func(ctx context.Context) error
	close func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StoreBackend == config.BackendMongo {
		return openMongoStores(ctx, cfg, logger)
	}
	logger.Warn("using in-memory storage; data is lost on restart")
	mem := memory.NewStore()
	mem.Idempotency.TTL = cfg.IdempotencyTTL
	return &stores{
		users:         mem.Users,
		accounts:      mem.Accounts,
		sessions:      mem.Sessions,
		listings:      mem.Listings,
		conversations: mem.Conversations,
		messages:      mem.Messages,
		factory:       mem.Factory(),
		outbox:        mem.Outbox,
		idempotency:   mem.Idempotency,
		ready:         func(context.Context) error { return nil },
		close:         func(context.Context) error { return nil },
	}, nil
}

func openMongoStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Ping(setupCtx); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := client.EnsureIndexes(setupCtx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	idem, err := mongostore.NewIdempotencyStore(setupCtx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	box, err := outboxstore.NewStore(setupCtx, client.DB)
	if err != nil {
		return nil, fmt.Errorf("outbox store: %w", err)
	}
	logger.Info("mongo storage ready", "database", cfg.MongoDB)
	return &stores{
		users:         mongostore.NewUserRepository(client.DB),
		accounts:      mongostore.NewAccountStore(client.DB),
		sessions:      mongostore.NewSessionStore(client.DB),
		listings:      mongostore.NewListingRepository(client.DB),
		conversations: mongostore.NewConversationRepository(client.DB),
		messages:      mongostore.NewMessageRepository(client.DB),
		factory:       mongostore.NewFactory(client.DB),
		outbox:        box,
		idempotency:   idem,
		ready:         client.Ping,
		close:         client.Close,
	}, nil
}
