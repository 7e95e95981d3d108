package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	adminapp "campusmarket/internal/app/handlers/admin"
	cartapp "campusmarket/internal/app/handlers/cart"
	listingapp "campusmarket/internal/app/handlers/listings"
	profileapp "campusmarket/internal/app/handlers/profile"
	reportapp "campusmarket/internal/app/handlers/reports"
	"campusmarket/internal/app/middleware"
	appoutbox "campusmarket/internal/app/outbox"
	"campusmarket/internal/app/policies"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/services/activity"
	adminsvc "campusmarket/internal/app/services/admin"
	authsvc "campusmarket/internal/app/services/auth"
	"campusmarket/internal/app/services/messaging"
	"campusmarket/internal/app/services/notifications"
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/broker/kafka"
	redisinfra "campusmarket/internal/infra/cache/redis"
	"campusmarket/internal/infra/config"
	"campusmarket/internal/infra/email"
	ginserver "campusmarket/internal/infra/http/gin"
	"campusmarket/internal/infra/obs"
	outboxrelay "campusmarket/internal/infra/outbox"
	"campusmarket/internal/infra/security"
	"campusmarket/internal/infra/storage/s3"
)

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	dispatcher *notifications.Dispatcher
	tracker    *activity.Tracker
	relay      *outboxrelay.Worker
	closers    []func(ctx context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &application{closers: []func(context.Context) error{st.close}}

	gate := adminsvc.NewGate(adminsvc.ParseEmails(cfg.AdminEmails), st.users, logger)
	if len(gate.Emails()) == 0 {
		logger.Warn("ADMIN_EMAILS is empty; admin endpoints are unreachable")
	}

	app.tracker = &activity.Tracker{
		Store:     st.users,
		Debouncer: activity.NewMemoryDebouncer(),
		Interval:  cfg.ActivityDebounce,
		Logger:    logger,
		Observe:   obs.ObserveActivity,
	}
	if cfg.RedisURL != "" {
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, debouncing in process", "error", err)
		} else {
			app.tracker.Debouncer = redisinfra.NewDebouncer(client, "campusmarket:")
			app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		}
	}

	app.dispatcher = &notifications.Dispatcher{
		Notifier:        newNotifier(cfg, logger),
		Users:           st.users,
		Listings:        st.listings,
		Activity:        app.tracker,
		Admins:          gate,
		ActiveThreshold: cfg.ActiveThreshold,
		Timeout:         cfg.NotifyTimeout,
		BaseURL:         cfg.AppBaseURL,
		Logger:          logger,
		Observe:         obs.ObserveNotification,
	}

	authService := &authsvc.Service{
		Accounts:   st.accounts,
		Users:      st.users,
		Sessions:   st.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.SessionTokens{},
		Academic:   domainuser.AcademicPolicy{Extra: cfg.AcademicDomains},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	encoder := appoutbox.JSONEventEncoder{}
	chat := &messaging.Service{
		Resolver:      &messaging.Resolver{Conversations: st.conversations, Logger: logger},
		Conversations: st.conversations,
		Messages:      st.messages,
		Listings:      st.listings,
		Users:         st.users,
		Outbox:        st.outbox,
		Encoder:       encoder,
		Notifications: app.dispatcher,
		Logger:        logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.Register[profileapp.UpdateProfileCommand, *dto.UserProfile](commandBus, &profileapp.UpdateProfileHandler{Logger: logger})
	commands.Register[listingapp.CreateListingCommand, *dto.Listing](commandBus, &listingapp.CreateListingHandler{Outbox: st.outbox, Encoder: encoder, Logger: logger})
	commands.Register[listingapp.UpdateListingCommand, *dto.Listing](commandBus, &listingapp.UpdateListingHandler{Logger: logger})
	commands.Register[listingapp.MarkSoldCommand, *dto.Listing](commandBus, &listingapp.MarkSoldHandler{Outbox: st.outbox, Encoder: encoder, Logger: logger})
	commands.Register[listingapp.RemoveListingCommand, *dto.Listing](commandBus, &listingapp.RemoveListingHandler{Admins: gate, Outbox: st.outbox, Encoder: encoder, Logger: logger})
	commands.Register[listingapp.UploadListingPhotoCommand, *dto.PhotoUploadResult](commandBus, &listingapp.UploadListingPhotoHandler{Storage: newPhotoStorage(cfg, logger), Logger: logger})
	commands.Register[cartapp.AddToCartCommand, *dto.Cart](commandBus, &cartapp.AddToCartHandler{Logger: logger})
	commands.Register[cartapp.RemoveFromCartCommand, *dto.Cart](commandBus, &cartapp.RemoveFromCartHandler{})
	commands.Register[cartapp.ClearCartCommand, *dto.Cart](commandBus, &cartapp.ClearCartHandler{})
	commands.Register[reportapp.SubmitReportCommand, *dto.Report](commandBus, &reportapp.SubmitReportHandler{Notifier: app.dispatcher, Outbox: st.outbox, Encoder: encoder, Logger: logger})
	commands.Register[reportapp.ResolveReportCommand, *dto.Report](commandBus, &reportapp.ResolveReportHandler{Notifier: app.dispatcher, Outbox: st.outbox, Encoder: encoder, Logger: logger})

	queryBus := queries.NewInMemoryBus()
	queries.Register[profileapp.GetProfileQuery, dto.UserProfile](queryBus, &profileapp.GetProfileHandler{UoWFactory: st.factory})
	queries.Register[profileapp.UsernameAvailabilityQuery, dto.UsernameAvailability](queryBus, &profileapp.UsernameAvailabilityHandler{Users: st.users})
	queries.Register[listingapp.SearchCatalogQuery, dto.ListingCatalog](queryBus, &listingapp.SearchCatalogHandler{UoWFactory: st.factory})
	queries.Register[listingapp.GetListingQuery, dto.ListingDetail](queryBus, &listingapp.GetListingHandler{UoWFactory: st.factory})
	queries.Register[listingapp.MyListingsQuery, dto.ListingCatalog](queryBus, &listingapp.MyListingsHandler{UoWFactory: st.factory})
	queries.Register[cartapp.GetCartQuery, *dto.Cart](queryBus, &cartapp.GetCartHandler{UoWFactory: st.factory})
	queries.Register[reportapp.ListReportsQuery, dto.ReportList](queryBus, &reportapp.ListReportsHandler{UoWFactory: st.factory})
	queries.Register[adminapp.ListUsersQuery, dto.UserList](queryBus, &adminapp.ListUsersHandler{UoWFactory: st.factory})
	queries.Register[adminapp.UserConversationsQuery, dto.UserConversations](queryBus, &adminapp.UserConversationsHandler{Users: st.users, Conversations: st.conversations})

	cmds := middleware.ChainCommands(
		commandBus,
		middleware.Observe(logger, obs.ObserveBus),
		middleware.Validation(middleware.NewStructValidator()),
		middleware.Authorization(gate),
		middleware.Idempotency(st.idempotency, nil, cfg.IdempotencyTTL),
		middleware.Transaction(st.factory, nil),
		middleware.OutboxFlush(st.outbox, logger),
	)
	qs := middleware.ChainQueries(
		queryBus,
		middleware.QueryObserve(logger, obs.ObserveBus),
		middleware.QueryValidation(middleware.NewStructValidator()),
		middleware.QueryAuthorization(gate),
	)

	cookie := ginserver.CookieSettings{Secure: cfg.SecureCookies, TTL: cfg.SessionTTL}
	guard := ginserver.RouteGuard{Sessions: authService, Logger: logger, LoginPath: cfg.LoginPath, Cookie: cookie}
	app.handlers = ginserver.Handlers{
		Auth:     ginserver.AuthHandler{Service: authService, Cookie: cookie, Logger: logger},
		Me:       ginserver.MeHandler{Commands: cmds, Queries: qs, Admins: gate, Logger: logger},
		Listing:  ginserver.ListingHandler{Commands: cmds, Queries: qs, Logger: logger},
		Sell:     ginserver.ListingHandler{Commands: cmds, Queries: qs, Logger: logger},
		Cart:     ginserver.CartHandler{Commands: cmds, Queries: qs, Logger: logger},
		Report:   ginserver.ReportHandler{Commands: cmds, Logger: logger},
		Chat:     ginserver.ChatHandler{Service: chat, Logger: logger},
		Admin:    ginserver.AdminHandler{Commands: cmds, Queries: qs, Gate: gate, Logger: logger},
		Guard:    guard.Handle,
		Activity: ginserver.ActivityMiddleware(app.tracker),
	}
	app.health = obs.HealthHandlers{Ready: st.ready}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("campusmarket"))
		if err != nil {
			return nil, errors.Join(err, app.close(ctx))
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		host, _ := os.Hostname()
		app.relay = &outboxrelay.Worker{
			Queue:       st.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			ID:          host,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
			Observe:     obs.ObserveOutbox,
		}
	} else {
		logger.Info("KAFKA_BROKERS not set; domain events stay in the outbox")
	}
	return app, nil
}

func newNotifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	if cfg.EmailAPIURL == "" {
		logger.Info("EMAIL_API_URL not set; emails are logged only")
		return email.LogNotifier{Logger: logger}
	}
	notifier, err := email.NewAPINotifier(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, logger)
	if err != nil {
		logger.Warn("email client misconfigured; emails are logged only", "error", err)
		return email.LogNotifier{Logger: logger}
	}
	return notifier
}

func newPhotoStorage(cfg config.Config, logger *slog.Logger) policies.PhotoStorage {
	if cfg.S3Endpoint == "" {
		logger.Info("S3_ENDPOINT not set; photo uploads are disabled")
		return s3.Unavailable{}
	}
	store, err := s3.NewPhotoStore(s3.Options{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, logger)
	if err != nil {
		logger.Warn("photo storage misconfigured; uploads are disabled", "error", err)
		return s3.Unavailable{}
	}
	return store
}

// close waits for background work and releases external clients.
func (a *application) close(ctx context.Context) error {
	a.dispatcher.Wait()
	a.tracker.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
