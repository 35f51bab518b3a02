package main

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/jmoiron/sqlx"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobdeck/alerts.api/config"
	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/handlers"
	"github.com/jobdeck/alerts.api/matching"
	"github.com/jobdeck/alerts.api/notifiers"
	"github.com/jobdeck/alerts.api/queue"
	"github.com/jobdeck/alerts.api/scheduler"
	"github.com/jobdeck/alerts.api/search"
)

var (
	auth           *handlers.AuthHandler
	admin          *handlers.AdminHandler
	UserContextKey = "user"
)

//go:embed data/migrations/*.sql
var embedMigrations embed.FS

func main() {
	config.LoadConfig()

	opts := slog.HandlerOptions{Level: config.Config.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &opts))
	slog.SetDefault(logger)

	db, err := sqlx.Connect("postgres", config.Config.PostgresURL)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}

	db.SetMaxOpenConns(90)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := data.RunMigrations(db.DB, embedMigrations); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	index, err := search.Open(config.Config.SearchIndexPath)
	if err != nil {
		slog.Error("failed to open search index", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisOpt, err := queue.ConnectRedis(ctx, config.Config.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	queueClient := queue.NewClient(redisOpt)

	userRepo := repos.NewUserRepo(db)
	alertRepo := repos.NewAlertRepo(db)
	matchRepo := repos.NewMatchRepo(db)

	mailer := notifiers.NewMailer(
		config.Config.SMTPHost,
		config.Config.SMTPPort,
		config.Config.SMTPFrom,
		config.Config.SMTPPassword,
		config.Config.AppBaseURL,
	)

	engine := matching.NewEngine(index, config.Config.ScanMatchLimit)
	pipeline := matching.NewPipeline(engine, alertRepo, matchRepo, userRepo, queueClient, mailer)

	worker := queue.NewWorker(redisOpt, config.Config.WorkerConcurrency, pipeline, index)
	if err := worker.Start(); err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(alertRepo, queueClient)
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	users := handlers.NewUserHandler(userRepo)
	alerts := handlers.NewAlertHandler(alertRepo)
	matches := handlers.NewMatchHandler(matchRepo)
	jobs := handlers.NewJobHandler(queueClient, index)
	admin = handlers.NewAdminHandler(alertRepo, queueClient, redisOpt)

	keycloakClient := gocloak.NewClient(config.Config.KeycloakURL)
	auth = handlers.NewAuthHandler(keycloakClient)
	go auth.StartTokenTicker()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /users/init", private(users.InitializeUser))
	mux.HandleFunc("PUT /users/preferences", private(users.UpdatePreferences))

	mux.HandleFunc("POST /alerts", private(alerts.CreateAlert))
	mux.HandleFunc("GET /alerts", private(alerts.GetAlerts))
	mux.HandleFunc("GET /alerts/{id}", private(alerts.GetAlert))
	mux.HandleFunc("PUT /alerts/{id}", private(alerts.UpdateAlert))
	mux.HandleFunc("DELETE /alerts/{id}", private(alerts.DeleteAlert))

	mux.HandleFunc("GET /matches", private(matches.GetMatches))

	mux.HandleFunc("GET /jobs", public(jobs.SearchJobs))
	mux.HandleFunc("POST /jobs", adminOnly(jobs.IndexJob))
	mux.HandleFunc("PUT /jobs/{id}", adminOnly(jobs.UpdateJob))
	mux.HandleFunc("DELETE /jobs/{id}", adminOnly(jobs.DeleteJob))

	mux.HandleFunc("POST /admin/alerts/{id}/scan", adminOnly(admin.TriggerScan))
	mux.HandleFunc("POST /admin/queues/{name}/obliterate", adminOnly(admin.ObliterateQueue))

	mux.Handle("GET /metrics", promhttp.Handler())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
		sched.Stop()
		worker.Shutdown()
		if err := queueClient.Close(); err != nil {
			slog.Error("failed to close queue client", "error", err)
		}
		if err := index.Close(); err != nil {
			slog.Error("failed to close search index", "error", err)
		}
		if err := db.Close(); err != nil {
			slog.Error("failed to close database connection", "error", err)
		}
		os.Exit(0)

	}()

	slog.Info("Starting server on port 8080")
	err = http.ListenAndServe(":8080", withCORS(mux))
	if err != nil {
		slog.Error("failed to start server", "error", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-admin-key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func private(handler handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		result := auth.GetUser(r.Context(), authHeader)
		if result.Code != http.StatusOK {
			slog.Debug("unauthorized request", "path", r.URL.Path)
			writeResult(w, result)
			return
		}

		user := result.Body.(data.User)
		ctx := context.WithValue(r.Context(), UserContextKey, user)

		public(handler)(w, r.WithContext(ctx))
	}
}

func adminOnly(handler handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if result := admin.Authorize(r); result.Code != http.StatusOK {
			slog.Debug("rejected admin request", "path", r.URL.Path)
			writeResult(w, result)
			return
		}

		public(handler)(w, r)
	}
}

func public(handler handlers.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts := time.Now()
		res := handler(w, r)
		elapsedMs := time.Since(ts).Milliseconds()
		slog.Debug("req", "method", r.Method, "path", r.URL.Path, "code", res.Code, "elapsed", elapsedMs)
		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, res handlers.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Code)
	if res.Body != nil {
		if err := json.NewEncoder(w).Encode(res.Body); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
	if res.Code == http.StatusInternalServerError {
		slog.Error("internal error", "error", res.Error.Error())
	}
}
