package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-coordinator/internal/app"
	"quiz-coordinator/internal/config"
	"quiz-coordinator/internal/domain"
	"quiz-coordinator/internal/infra/memory"
	pgloader "quiz-coordinator/internal/infra/postgres"
	redisinfra "quiz-coordinator/internal/infra/redis"
	transport "quiz-coordinator/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the coordinator.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz coordinator",
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
		finalPort = "3001"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.SetLoader = memory.NewStaticSetLoader(sampleSets())
	if pool != nil {
		loader = pgloader.NewSetLoader(pool)
	}

	setTTL := config.TTLDuration(cfg.Quiz.SetTTL, 10*time.Minute)
	var sets app.QuestionSetRepository
	if redisClient != nil {
		sets = redisinfra.NewQuestionSetRepository(redisClient, loader, setTTL)
	} else {
		sets = memory.NewQuestionSetRepository(loader, setTTL)
	}

	var archive app.ResultArchive
	if redisClient != nil {
		archive = redisinfra.NewResultArchive(redisClient, 16, redisTTL)
	} else {
		archive = memory.NewResultArchive(16)
	}

	coordinator := app.NewCoordinator(sets, archive, app.Config{
		AdminPassphrase: cfg.Admin.Passphrase,
		AnswerGrace:     config.TTLDuration(cfg.Quiz.AnswerGrace, 2*time.Second),
	})
	wsHandler := transport.NewWSHandler(coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz coordinator on :%s", finalPort)
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

// sampleSets provides a demo question set; with Postgres configured, sets come
// from the question_sets table instead.
func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"demo": {
			ID:    "demo",
			Topic: "warm-up",
			Questions: []domain.Question{
				{
					Prompt:    "What is 2 + 2?",
					Options:   []string{"3", "4", "5", "22"},
					Correct:   1,
					TimeLimit: 30,
				},
				{
					Prompt:    "Which planet is known as the Red Planet?",
					Options:   []string{"Venus", "Jupiter", "Mars", "Saturn"},
					Correct:   2,
					TimeLimit: 30,
				},
			},
		},
	}
}
