package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/banterhq/banter/internal/auth"
	"github.com/banterhq/banter/internal/bridge"
	"github.com/banterhq/banter/internal/config"
	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/logging"
	"github.com/banterhq/banter/internal/membership"
	"github.com/banterhq/banter/internal/moderation"
	"github.com/banterhq/banter/internal/pubsub"
	"github.com/banterhq/banter/internal/room"
	"github.com/banterhq/banter/internal/user"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/surrealdb/surrealdb.go"
)

// Server holds the dependencies for the chat service.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Cfg config.Provider

	bus        *pubsub.WatermillBridge
	live       *bridge.Bridge
	dispatcher *bridge.Dispatcher
}

// New creates a fully wired Server instance. Each service is constructed
// once here and handed its collaborators explicitly; there are no lazily
// initialized globals.
func New() *Server {
	logging.New()
	cfg := config.New()

	ctx := context.Background()
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("Failed to apply database schema", "error", err)
		os.Exit(1)
	}

	roomStore := database.NewSurrealRoomStore(db)
	userStore := database.NewSurrealUserStore(db)

	bus := pubsub.NewWatermillBridge()

	userSvc := user.NewService(userStore, roomStore)
	roomSvc := room.NewService(roomStore, userStore, moderation.NewFilter(defaultBlockedWords...))
	membershipMgr := membership.NewManager(roomStore, userSvc, bus)
	authSvc := auth.NewService(cfg.GetTokenSecret(), cfg.GetTokenTTL(), membershipMgr, userStore)

	liveBridge := bridge.New()
	dispatcher := bridge.NewDispatcher(authSvc, userSvc, roomSvc, membershipMgr, liveBridge)
	if err := dispatcher.ListenMembership(ctx, bus); err != nil {
		slog.Error("Failed to subscribe to membership events", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	return &Server{
		E:          e,
		DB:         db,
		Cfg:        cfg,
		bus:        bus,
		live:       liveBridge,
		dispatcher: dispatcher,
	}
}

// defaultBlockedWords seeds the moderation filter. Deployments extend this
// list out of band; the service only depends on the predicate.
var defaultBlockedWords = []string{
	"damn", "hell", "crap",
}
