package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/app"
	"github.com/Spok95/acadify-records/internal/auth"
	"github.com/Spok95/acadify-records/internal/config"
	"github.com/Spok95/acadify-records/internal/db"
	"github.com/Spok95/acadify-records/internal/deanslist"
	"github.com/Spok95/acadify-records/internal/eligibility"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/jobs"
	"github.com/Spok95/acadify-records/internal/lifecycle"
	"github.com/Spok95/acadify-records/internal/logging"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/observability"
	"github.com/Spok95/acadify-records/internal/storage"
	"github.com/Spok95/acadify-records/internal/window"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg.Base); err != nil {
		observability.CaptureErr(err)
		lg.Base.Error("acadify stopped", zap.Error(err))
		flush()
		lg.Closer()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := db.NewStore(database)

	dispatcher := events.NewDispatcher(logger.Named("events")).
		Register("audit", events.NewAuditLog(store))
	if cfg.Redis.Addr != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		dispatcher.Register("redis", events.NewRedisQueue(rdb, cfg.Redis.Queue))
		logger.Info("event queue enabled", zap.String("queue", cfg.Redis.Queue))
	}

	var archive deanslist.Archiver
	if cfg.S3.Bucket != "" {
		s3a, err := storage.NewS3Archive(storage.Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return err
		}
		archive = s3a
		logger.Info("report archive enabled", zap.String("bucket", cfg.S3.Bucket))
	}

	windows := window.NewService(store, dispatcher, cfg.Location, logger.Named("window"))
	grades := lifecycle.NewManager(store, windows, dispatcher, logger.Named("lifecycle"))
	checker := eligibility.NewEngine(store, logger.Named("eligibility"))
	deans := deanslist.NewService(store, dispatcher, archive, logger.Named("deanslist"))

	runner := jobs.New(ctx, cfg.Location, logger.Named("jobs"))
	runner.Every(cfg.StatusRefreshInterval, "encoding_windows", jobs.RefreshWindows(windows, logger.Named("jobs")))
	if cfg.DeansListCron != "" {
		job := jobs.ComputeDeansList(deans, cfg.Location, time.Now, logger.Named("jobs"))
		if err := runner.Cron(cfg.DeansListCron, "deans_list", job); err != nil {
			return err
		}
	}

	router := app.NewRouter(app.Deps{
		DB:          store,
		Grades:      grades,
		Windows:     windows,
		Eligibility: checker,
		DeansList:   deans,
		Verifier:    auth.NewVerifier(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger.Named("http"),
	})
	srv := app.StartHTTP(ctx, cfg.HTTPAddr, router, logger.Named("http"))

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Wait()
	return nil
}

// issueToken prints a bearer token for local testing and service accounts:
//
//	acadify token -kind staff -id 1 -role admin -ttl 24h
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	kind := fs.String("kind", auth.KindStaff, "staff or student")
	id := fs.Int64("id", 0, "user or student id")
	role := fs.String("role", string(models.RoleAdmin), "staff role")
	name := fs.String("name", "", "display name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}

	var actor models.Actor
	switch *kind {
	case auth.KindStudent:
		actor = models.StudentActor{StudentID: *id, Name: *name}
	case auth.KindStaff:
		r, err := models.ParseRole(*role)
		if err != nil || !r.IsStaff() {
			return fmt.Errorf("-role %q is not a staff role", *role)
		}
		actor = models.StaffActor{UserID: *id, StaffRole: r, Name: *name}
	default:
		return fmt.Errorf("-kind must be %s or %s", auth.KindStaff, auth.KindStudent)
	}
	tok, err := auth.NewVerifier(secret).Issue(actor, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
