package main // Entry point package

import (
	"context"      // contexts for bootstrap and background jobs
	"database/sql" // sentinel errors from the user lookup
	"log"          // Logging library
	"time"         // timeouts and the purge ticker

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/botteghino/fiscal-ticketing/internal/config"     // Internal config loader
	"github.com/botteghino/fiscal-ticketing/internal/database"   // MySQL pool
	"github.com/botteghino/fiscal-ticketing/internal/emission"   // fiscal ticket engine
	"github.com/botteghino/fiscal-ticketing/internal/fiscal"     // seal device bridge
	"github.com/botteghino/fiscal-ticketing/internal/handler"    // HTTP handlers
	"github.com/botteghino/fiscal-ticketing/internal/middleware" // rate limit + cache middleware
	"github.com/botteghino/fiscal-ticketing/internal/model"      // role constants
	"github.com/botteghino/fiscal-ticketing/internal/queue"      // audit consumer
	"github.com/botteghino/fiscal-ticketing/internal/repository" // DB repositories
	"github.com/botteghino/fiscal-ticketing/internal/router"     // Internal router setup
	queue_publisher "github.com/botteghino/fiscal-ticketing/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client turns the rate limiter and the
	// public cache into pass-throughs. Emission never depends on it.
	rdb := config.NewRedisClient()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	sectors := repository.NewSectorRepo(db)
	allocations := repository.NewAllocationRepo(db)
	tickets := repository.NewTicketRepo(db)
	audits := repository.NewAuditRepo(db)

	// Seal device: the HTTP bridge sidecar, or the stub when the admin
	// test bypass is on.
	var device fiscal.Device
	if cfg.SealBypass {
		device = fiscal.NewStubDevice()
		log.Printf("FISCAL_SEAL_BYPASS is on: tickets will carry stub seals")
	} else {
		device = fiscal.NewBridge(cfg.BridgeURL, cfg.BridgeTimeout)
	}

	engine := emission.NewEngine(emission.NewMySQLStore(db), device, queue_publisher.NewAuditRelay(), cfg.SealBypass)

	bootstrapAdmin(cfg, users)

	// The consumer mirrors audit events into the database and the
	// operator log file; emission works fine without a broker.
	go func() {
		if err := queue.StartAuditConsumer(audits); err != nil {
			log.Printf("audit consumer disabled: %v", err)
		}
	}()
	go purgeTokensLoop(tokens)

	e := echo.New() // Create Echo instance

	// One bucket configuration guards both credential and seal abuse; the
	// key strategy keeps per-route buckets separate.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, limit)
	router.RegisterPublic(e,
		handler.NewPublicBrowseHandler(events, sectors),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	allocH := handler.NewManagerAllocationHandler(allocations, users, events, sectors)
	router.RegisterTickets(e,
		handler.NewCashierTicketHandler(engine, tickets),
		allocH,
		handler.NewFiscalStatusHandler(device, cfg.SealBypass),
		cfg.JWTSecret, limit)
	router.RegisterManager(e,
		handler.NewManagerEventHandler(events, sectors, tickets),
		allocH,
		handler.NewAuditHandler(audits),
		cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminUserHandler(cfg, users), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

// bootstrapAdmin provisions the first admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD so a fresh install can log in. It does nothing when the
// variables are unset or the account already exists.
func bootstrapAdmin(cfg config.Config, users *repository.UserRepo) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return // already provisioned
	}
	if err != sql.ErrNoRows {
		log.Printf("admin bootstrap: lookup failed: %v", err)
		return
	}
	id, err := users.Create(ctx, cfg.AdminEmail, cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost)
	if err != nil {
		log.Printf("admin bootstrap: create failed: %v", err)
		return
	}
	log.Printf("admin bootstrap: created account id=%d email=%s", id, cfg.AdminEmail)
}

// purgeTokensLoop deletes refresh tokens that expired more than a day
// ago. Rows are kept for that grace period so a support operator can
// still see why a terminal was logged out.
func purgeTokensLoop(tokens *repository.TokenRepo) {
	t := time.NewTicker(12 * time.Hour)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := tokens.PurgeExpired(ctx, 24*time.Hour)
		cancel()
		if err != nil {
			log.Printf("token purge failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("purged %d expired refresh tokens", n)
		}
	}
}
