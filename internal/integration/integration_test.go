package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/domain"
	infrapg "race-quiz-service/internal/infra/postgres"
	pgmigrations "race-quiz-service/internal/infra/postgres/migrations"
	infraredis "race-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// TestQuizLifecycleEndToEnd walks the whole flow against real Postgres and
// Redis: register, create a quiz, submit, disclose answers, check standings.
func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	var quizzes app.QuizStore = infrapg.NewQuizStore(pool)
	quizzes = infraredis.NewQuizCache(redisClient, quizzes, 5*time.Minute)
	submissions := infrapg.NewSubmissionStore(pool)
	users := infrapg.NewUserStore(pool)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)

	auth := app.NewAuthService(users, sessions)
	quizService := app.NewQuizService(quizzes, submissions)
	submissionService := app.NewSubmissionService(quizzes, submissions, users)
	leaderboard := app.NewLeaderboardService(quizzes, submissions)

	// First registered account becomes the admin.
	adminUser, err := auth.Register(ctx, "boss@example.com", "secret-1", "Boss")
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if adminUser.Role != domain.RoleAdmin {
		t.Fatalf("first user role = %s, want admin", adminUser.Role)
	}
	amyUser, err := auth.Register(ctx, "amy@example.com", "secret-2", "Amy")
	if err != nil {
		t.Fatalf("register amy: %v", err)
	}

	_, adminToken, err := auth.Login(ctx, "boss@example.com", "secret-1")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	admin, err := auth.Authenticate(ctx, adminToken)
	if err != nil || admin.Anonymous() {
		t.Fatalf("authenticate admin: actor=%+v err=%v", admin, err)
	}
	amy := app.Actor{ID: amyUser.ID, Role: domain.RoleParticipant}

	quiz, err := quizService.Create(ctx, admin, "Grand Prix", time.Now().Add(time.Hour), []string{
		"Rain during the race?",
		"Safety car deployed?",
		"Home driver on podium?",
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	if _, err := submissionService.Submit(ctx, amy, quiz.ID, map[string]string{
		"q1": "Yes", "q2": "No", "q3": "No",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Participants must not see the answer key while the quiz is open, even
	// through the cache.
	visible, err := quizService.Get(ctx, amy, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	for _, q := range visible.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("answer key leaked before disclosure: %q", q.CorrectAnswer)
		}
	}

	_, result, err := quizService.Disclose(ctx, admin, quiz.ID, []string{"Yes", "Yes", "No"})
	if err != nil {
		t.Fatalf("disclose: %v", err)
	}
	if result.Scored != 1 || result.Failed != 0 {
		t.Fatalf("rescore = %+v, want 1 scored", result)
	}

	scored, ok, err := submissionService.MySubmission(ctx, amy, quiz.ID)
	if err != nil || !ok {
		t.Fatalf("my submission: ok=%v err=%v", ok, err)
	}
	if !scored.Scored || scored.Score != 2 || scored.TotalQuestions != 3 {
		t.Fatalf("submission = %+v, want score 2 of 3", scored)
	}

	standings, err := leaderboard.Standings(ctx, amy)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings.Rows) != 1 || standings.Rows[0].TotalScore != 2 {
		t.Fatalf("standings = %+v, want one row with total 2", standings.Rows)
	}
	cell, exists := standings.Rows[0].Cells[quiz.ID]
	if !exists || cell.State != app.CellScored || cell.Score != 2 {
		t.Fatalf("cell = %+v, want scored 2", cell)
	}

	// The disclosure must be visible through the cache immediately.
	after, err := quizService.Get(ctx, amy, quiz.ID)
	if err != nil {
		t.Fatalf("get after disclose: %v", err)
	}
	if after.Questions[0].CorrectAnswer != "Yes" {
		t.Fatalf("disclosed answer = %q, want Yes", after.Questions[0].CorrectAnswer)
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

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
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
