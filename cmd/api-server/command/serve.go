package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewhub/database"
	"reviewhub/internal/api"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"
	"reviewhub/internal/config"
	"reviewhub/internal/confirm"
	"reviewhub/internal/mail"
	"reviewhub/internal/metrics"
	"reviewhub/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// kill (no parameter) sends SIGTERM, ctrl-c sends SIGINT
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	consumed, closeStore, err := consumedStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	codes, err := confirm.NewIssuer(cfg.JWTSecret, cfg.ConfirmationCodeTTL)
	if err != nil {
		return err
	}
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	dispatcher := mail.NewDispatcher(mailer(cfg, logger),
		mail.FailSilently(cfg.MailFailSilently),
		mail.Async(cfg.MailAsync),
		mail.WithLogger(logger),
		mail.OnFailure(metrics.MailFailures.Inc),
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	genreRepo := repository.NewGenreRepository(db)
	titleRepo := repository.NewTitleRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Initialize services
	services := api.Services{
		Auth:       service.NewAuthService(userRepo, codes, consumed, dispatcher, tokens, logger),
		Categories: service.NewCategoryService(categoryRepo),
		Genres:     service.NewGenreService(genreRepo),
		Titles:     service.NewTitleService(titleRepo, categoryRepo, genreRepo),
		Reviews:    service.NewReviewService(reviewRepo, titleRepo),
		Comments:   service.NewCommentService(commentRepo, reviewRepo),
		Users:      service.NewUserService(userRepo),
	}

	limiter, err := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateBurst, ratelimit.DefaultTableSize)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	router, err := api.NewRouter(services, api.Options{
		Logger:      logger,
		Users:       userRepo,
		Database:    sqlDB,
		AuthLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     cfg.PrometheusEnabled,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// consumedStore prefers redis so single-use codes hold across replicas.
func consumedStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (confirm.ConsumedStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, tracking used confirmation codes in memory")
		return confirm.NewMemoryConsumedStore(10 * time.Minute), func() {}, nil
	}
	client, err := confirm.DialRedis(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to Redis")
	return confirm.NewRedisConsumedStore(client), func() { client.Close() }, nil
}

func mailer(cfg *config.Config, logger *slog.Logger) mail.Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, confirmation mail is written to the log")
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
}
