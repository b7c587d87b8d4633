package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/printdesk/printdesk/internal/authn"
	"github.com/printdesk/printdesk/internal/board"
	"github.com/printdesk/printdesk/internal/invite"
	"github.com/printdesk/printdesk/internal/mongo"
	"github.com/printdesk/printdesk/internal/stream"
	"github.com/printdesk/printdesk/pkg"
)

const (
	appNamespace = "PRINTDESK"
	appName      = "printdesk"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	orderRepo := mongo.NewOrderRepo(db)
	inviteRepo := mongo.NewInviteRepo(db)
	userRepo := mongo.NewUserRepo(db)

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	// Sessions open at sign-in gate the board and invite routes.
	sessionTTL := authn.DefaultSessionTTL
	if raw := config.GetStringOrDef("auth.session.ttl", ""); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			sessionTTL = parsed
		} else {
			logger.Errorf("invalid auth.session.ttl %q, using default: %v", raw, err)
		}
	}
	sessions := authn.NewSessionStore(sessionTTL)
	guard := authn.NewGuard(sessions, config, logger)

	// Board: cached projection of the orders collection, kept fresh by
	// change events and fanned out to connected clients.
	orderCache := board.NewOrderStateCache(orderRepo, logger)
	boardNotifier := stream.NewNotifier(logger)
	orderSub := board.NewOrderChangeSubscriber(sub, orderCache, logger)
	orderSub.SetStream(boardNotifier)

	actions := board.NewActions(orderRepo, orderCache, pub, logger)
	boardHub := board.NewBoardHub(orderCache, boardNotifier, actions, logger)

	boardDeps := board.HandlerDeps{
		Cache:   orderCache,
		Actions: actions,
		Hub:     boardHub,
		Guards: []func(http.Handler) http.Handler{
			guard.RequireSession,
			guard.RequireScreen(authn.ScreenBoard),
		},
	}
	boardHandler := board.NewHandler(boardDeps, config, logger)

	// Invites: live administration screen plus registration consumption.
	inviteService := invite.NewService(inviteRepo, pub, logger)
	inviteNotifier := stream.NewNotifier(logger)
	inviteSub := invite.NewChangeSubscriber(sub, inviteNotifier, logger)
	inviteHandler := invite.NewHandler(inviteService, inviteNotifier, config, logger,
		guard.RequireSession,
		guard.RequireScreen(authn.ScreenInvites),
	)

	authHandler := authn.NewAuthHandler(userRepo, inviteService, sessions, config, logger)

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	subLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return sub.Close()
		},
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		orderSub,
		inviteSub,
		publisherLifecycle,
		subLifecycle,
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", boardHandler, inviteHandler, authHandler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
