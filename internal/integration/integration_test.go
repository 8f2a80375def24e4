package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
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

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	pginfra "livequiz-service/internal/infra/postgres"
	pgmigrations "livequiz-service/internal/infra/postgres/migrations"
	redisinfra "livequiz-service/internal/infra/redis"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(pgURL)
	defer db.Close()
	seedQuiz(t, ctx, db, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pginfra.NewQuizLoader(pool)
	quizRepo := redisinfra.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := redisinfra.NewSessionStore(redisClient, 5*time.Minute)
	archive := pginfra.NewArchive(db)
	service := app.NewSessionService(sessionStore, quizRepo, archive)

	session, err := service.Create(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	code := session.JoinCode()

	_, alice, err := service.Join(ctx, code, "Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	_, bob, err := service.Join(ctx, code, "Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := service.Start(ctx, session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.SubmitAnswer(ctx, session.ID(), alice.ID, "q1", "4", 3); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, session.ID(), bob.ID, "q1", "5", 7); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	if err := service.Stop(ctx, session.ID()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// The final result must land in Postgres for the report exporter.
	archived, err := archive.LoadResult(ctx, session.ID())
	if err != nil {
		t.Fatalf("load archived result: %v", err)
	}
	if archived.Session.Status != domain.StatusCompleted {
		t.Fatalf("expected completed session archived, got %s", archived.Session.Status)
	}
	if len(archived.Summaries) != 2 || archived.Summaries[0].Name != "Alice" {
		t.Fatalf("expected Alice ranked first in archive, got %+v", archived.Summaries)
	}
	if len(archived.WrongAnswers[bob.ID]) != 1 {
		t.Fatalf("expected Bob's wrong answer archived, got %+v", archived.WrongAnswers)
	}
}

func TestReapDeletesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := openBun(pgURL)
	defer db.Close()
	runMigrations(t, ctx, db)

	archive := pginfra.NewArchive(db)
	now := time.Now().UTC()

	old := domain.SessionState{
		ID:        "old-session",
		JoinCode:  "AAAA22",
		Quiz:      domain.Quiz{ID: "quiz-1"},
		Status:    domain.StatusCompleted,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}
	stale := domain.SessionState{
		ID:             "stale-session",
		JoinCode:       "BBBB33",
		Quiz:           domain.Quiz{ID: "quiz-1"},
		Status:         domain.StatusActive,
		CreatedAt:      now.Add(-2 * time.Hour),
		TimerUpdatedAt: now.Add(-time.Hour),
	}
	if err := archive.SaveSnapshot(ctx, old); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := archive.SaveSnapshot(ctx, stale); err != nil {
		t.Fatalf("save stale: %v", err)
	}

	deleted, closed, err := archive.Reap(ctx, now, 28*24*time.Hour, 10*time.Minute)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if closed != 1 {
		t.Fatalf("expected 1 stale session closed, got %d", closed)
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

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func runMigrations(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, db *bun.DB, quiz domain.Quiz) {
	t.Helper()
	runMigrations(t, ctx, db)

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		Title:        "Warm-up",
		TimeLimitSec: 60,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{Value: "3", Text: "3"},
					{Value: "4", Text: "4"},
					{Value: "5", Text: "5"},
				},
				Correct: "4",
				Points:  1,
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
