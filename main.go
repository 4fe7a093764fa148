package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/database"
	"github.com/avinm/ledgerdesk/src/handlers"
	"github.com/avinm/ledgerdesk/src/logger"
	_ "github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security"
	"github.com/avinm/ledgerdesk/src/services"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == config.Cfg.FrontendOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, Content-Disposition")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("LedgerDesk backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid: must be at least 32 characters.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	authService := security.NewAuthService(config.Cfg.JWTSecret)

	ledgerService := services.NewLedgerService(database.DB)
	accountService := services.NewAccountService(database.DB)
	partyService := services.NewPartyService(database.DB)
	inventoryService := services.NewInventoryService(database.DB)
	portfolioService := services.NewPortfolioService(database.DB)
	planningService := services.NewPlanningService(database.DB)
	reportService := services.NewReportService(database.DB)
	journalService := services.NewJournalService(database.DB)
	vaultService := services.NewVaultService(database.DB)
	snapshotService := services.NewSnapshotService(database.DB, ledgerService)
	syncService := services.NewSyncService(database.DB, snapshotService)

	userHandler := handlers.NewUserHandler(authService, vaultService)
	txHandler := handlers.NewTransactionHandler(ledgerService, reportService, syncService)
	accountHandler := handlers.NewAccountHandler(accountService, ledgerService, reportService)
	partyHandler := handlers.NewPartyHandler(partyService, ledgerService, reportService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, reportService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, reportService, syncService)
	planningHandler := handlers.NewPlanningHandler(planningService)
	reportHandler := handlers.NewReportHandler(reportService)
	journalHandler := handlers.NewJournalHandler(journalService)
	vaultHandler := handlers.NewVaultHandler(vaultService)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotService, reportService)
	syncHandler := handlers.NewSyncHandler(syncService, reportService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "LedgerDesk backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Post("/user/change-password", userHandler.ChangePasswordHandler)

			r.Get("/transactions", txHandler.HandleList)
			r.Post("/transactions", txHandler.HandleCreate)
			r.Get("/transactions/{id}", txHandler.HandleGet)
			r.Put("/transactions/{id}", txHandler.HandleUpdate)
			r.Delete("/transactions/{id}", txHandler.HandleDelete)

			r.Get("/accounts", accountHandler.HandleList)
			r.Post("/accounts", accountHandler.HandleCreate)
			r.Get("/accounts/{id}", accountHandler.HandleGet)
			r.Put("/accounts/{id}", accountHandler.HandleUpdate)
			r.Delete("/accounts/{id}", accountHandler.HandleDelete)
			r.Get("/accounts/{id}/statement", accountHandler.HandleStatement)
			r.Get("/accounts/{id}/statement.csv", accountHandler.HandleStatementCSV)

			r.Get("/parties", partyHandler.HandleList)
			r.Post("/parties", partyHandler.HandleCreate)
			r.Get("/parties/{id}", partyHandler.HandleGet)
			r.Put("/parties/{id}", partyHandler.HandleUpdate)
			r.Delete("/parties/{id}", partyHandler.HandleDelete)
			r.Get("/parties/{id}/statement", partyHandler.HandleStatement)

			r.Get("/inventory", inventoryHandler.HandleList)
			r.Post("/inventory", inventoryHandler.HandleCreate)
			r.Get("/inventory/low-stock", inventoryHandler.HandleLowStock)
			r.Get("/inventory/{id}", inventoryHandler.HandleGet)
			r.Put("/inventory/{id}", inventoryHandler.HandleUpdate)
			r.Delete("/inventory/{id}", inventoryHandler.HandleDelete)

			r.Get("/investments", portfolioHandler.HandleList)
			r.Post("/investments", portfolioHandler.HandleCreate)
			r.Get("/investments/summary", portfolioHandler.HandleSummary)
			r.Get("/investments/{id}", portfolioHandler.HandleGet)
			r.Delete("/investments/{id}", portfolioHandler.HandleDelete)
			r.Post("/investments/{id}/trades", portfolioHandler.HandleTrade)
			r.Put("/investments/{id}/price", portfolioHandler.HandleMark)

			r.Get("/budgets", planningHandler.HandleListBudgets)
			r.Post("/budgets", planningHandler.HandleCreateBudget)
			r.Post("/budgets/copy", planningHandler.HandleCopyBudgets)
			r.Put("/budgets/{id}", planningHandler.HandleUpdateBudget)
			r.Delete("/budgets/{id}", planningHandler.HandleDeleteBudget)

			r.Get("/goals", planningHandler.HandleListGoals)
			r.Post("/goals", planningHandler.HandleCreateGoal)
			r.Put("/goals/{id}", planningHandler.HandleUpdateGoal)
			r.Delete("/goals/{id}", planningHandler.HandleDeleteGoal)

			r.Get("/credentials", vaultHandler.HandleList)
			r.Post("/credentials", vaultHandler.HandleCreate)
			r.Put("/credentials/{id}", vaultHandler.HandleUpdate)
			r.Delete("/credentials/{id}", vaultHandler.HandleDelete)
			r.Post("/credentials/{id}/reveal", vaultHandler.HandleReveal)
			r.Post("/vault/totp/setup", vaultHandler.HandleSetupTOTP)
			r.Post("/vault/totp/enable", vaultHandler.HandleEnableTOTP)
			r.Post("/vault/totp/disable", vaultHandler.HandleDisableTOTP)

			r.Get("/journal", journalHandler.HandleList)
			r.Post("/journal", journalHandler.HandleCreate)
			r.Get("/journal/{id}", journalHandler.HandleGet)
			r.Put("/journal/{id}", journalHandler.HandleUpdate)
			r.Delete("/journal/{id}", journalHandler.HandleDelete)

			r.Get("/categories", journalHandler.HandleListCategories)
			r.Post("/categories", journalHandler.HandleAddCategory)
			r.Delete("/categories/{kind}/{name}", journalHandler.HandleDeleteCategory)

			r.Get("/reports/dashboard", reportHandler.HandleDashboard)
			r.Get("/reports/monthly", reportHandler.HandleMonthly)
			r.Get("/reports/calendar", reportHandler.HandleCalendar)

			r.Get("/snapshot/export", snapshotHandler.HandleExport)
			r.Post("/snapshot/import", snapshotHandler.HandleImport)

			r.Get("/sync/status", syncHandler.HandleStatus)
			r.Post("/sync/enable", syncHandler.HandleEnable)
			r.Post("/sync/pull", syncHandler.HandlePull)
			r.Post("/sync/auto", syncHandler.HandleSetAutoSync)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
			return
		}
		http.NotFound(w, r)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
