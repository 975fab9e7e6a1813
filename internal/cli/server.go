package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/config"
	"race-quiz-service/internal/infra/memory"
	"race-quiz-service/internal/infra/postgres"
	rediscache "race-quiz-service/internal/infra/redis"
	transport "race-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// Durable stores come from Postgres when configured, otherwise everything
	// lives in process memory. Redis layers a quiz cache and session TTLs on
	// top of either.
	var (
		quizzes     app.QuizStore       = memory.NewQuizStore()
		submissions app.SubmissionStore = memory.NewSubmissionStore()
		users       app.UserStore       = memory.NewUserStore()
		sessions    app.SessionStore    = memory.NewSessionStore()
	)
	if pool != nil {
		quizzes = postgres.NewQuizStore(pool)
		submissions = postgres.NewSubmissionStore(pool)
		users = postgres.NewUserStore(pool)
	}
	if redisClient != nil {
		quizzes = rediscache.NewQuizCache(redisClient, quizzes, config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute))
		sessions = rediscache.NewSessionStore(redisClient, config.TTLDuration(cfg.Session.TTL, 24*time.Hour))
	}

	auth := app.NewAuthService(users, sessions)
	quizService := app.NewQuizService(quizzes, submissions)
	submissionService := app.NewSubmissionService(quizzes, submissions, users)
	leaderboard := app.NewLeaderboardService(quizzes, submissions)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(auth, quizService, submissionService, leaderboard).Register(mux)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(auth, quizService, submissionService).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting race quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
