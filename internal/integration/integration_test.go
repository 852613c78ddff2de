package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-coordinator/internal/app"
	"quiz-coordinator/internal/domain"
	pgloader "quiz-coordinator/internal/infra/postgres"
	pgmigrations "quiz-coordinator/internal/infra/postgres/migrations"
	infraredis "quiz-coordinator/internal/infra/redis"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []any
}

func (f *fakeConn) Send(msg any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return true
}

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedSet(t, ctx, pgURL, sampleSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	sets := infraredis.NewQuestionSetRepository(redisClient, pgloader.NewSetLoader(pool), 5*time.Minute)
	archive := infraredis.NewResultArchive(redisClient, 4, time.Hour)
	coord := app.NewCoordinator(sets, archive, app.Config{})

	admin, alice, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}
	if err := coord.ConnectAdmin(admin, ""); err != nil {
		t.Fatalf("admin connect: %v", err)
	}
	if err := coord.ConnectPlayer(alice, "Alice"); err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	if err := coord.ConnectPlayer(bob, "Bob"); err != nil {
		t.Fatalf("bob connect: %v", err)
	}

	if err := coord.StartFromSet(ctx, admin, "geo"); err != nil {
		t.Fatalf("start from set: %v", err)
	}

	correct := 2
	wrong := 0
	if err := coord.SubmitAnswer(alice, 1, &correct); err != nil {
		t.Fatalf("alice answer: %v", err)
	}
	if err := coord.SubmitAnswer(bob, 1, &wrong); err != nil {
		t.Fatalf("bob answer: %v", err)
	}
	if err := coord.EndQuiz(admin); err != nil {
		t.Fatalf("end quiz: %v", err)
	}

	lb := coord.Snapshot()
	if len(lb) != 2 || lb[0].Name != "Alice" || lb[0].Score != 1 {
		t.Fatalf("expected Alice leading, got %+v", lb)
	}

	results, err := archive.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent results: %v", err)
	}
	if len(results) != 1 || results[0].Leaders[0].Name != "Alice" {
		t.Fatalf("expected archived result led by Alice, got %+v", results)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedSet(t *testing.T, ctx context.Context, dsn string, set domain.QuestionSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, topic, data) VALUES (?, ?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, set.Topic, string(data)); err != nil {
		t.Fatalf("insert set: %v", err)
	}
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID:    "geo",
		Topic: "geography",
		Questions: []domain.Question{
			{
				Prompt:    "Capital of France?",
				Options:   []string{"Lyon", "Nice", "Paris", "Lille"},
				Correct:   2,
				TimeLimit: 30,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
