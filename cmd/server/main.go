// Command server runs the API and the audio transcoding worker in one
// process. The worker consumes from the same broker the API publishes
// to, so a single binary serves both roles.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/prodicts/prodicts-backend/internal/config"
	"github.com/prodicts/prodicts-backend/internal/database"
	"github.com/prodicts/prodicts-backend/internal/handler"
	"github.com/prodicts/prodicts-backend/internal/media"
	"github.com/prodicts/prodicts-backend/internal/queue"
	"github.com/prodicts/prodicts-backend/internal/repository"
	"github.com/prodicts/prodicts-backend/internal/router"
	"github.com/prodicts/prodicts-backend/internal/service"
	"github.com/prodicts/prodicts-backend/internal/token"
	"github.com/prodicts/prodicts-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("server: open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTLMin)
	storage := media.NewStorage(cfg.PublicDir)
	queueClient := queue.NewClient(cfg.RabbitURL, cfg.AudioExchange, cfg.AudioQueue, cfg.AudioRoutingKey)
	defer queueClient.Close()

	users := repository.NewUserRepo(db)
	anonymous := repository.NewAnonymousUserRepo(db)
	sessions := repository.NewRefreshTokenRepo(db, cfg.RefreshTTLDays)
	series := repository.NewPodcastSeriesRepo(db)
	seasons := repository.NewPodcastSeasonRepo(db)
	episodes := repository.NewPodcastEpisodeRepo(db)
	groups := repository.NewFlashCardGroupRepo(db)
	cards := repository.NewFlashCardRepo(db)
	appConfigs := repository.NewAppConfigRepo(db)

	authService := service.NewAuthService(users, anonymous, sessions, issuer, cfg.BcryptCost)
	uploadService := service.NewUploadService(episodes, storage, queueClient)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Cfg:       cfg,
		Tokens:    issuer,
		Redis:     rdb,
		Auth:      handler.NewAuthHandler(authService, users),
		Users:     handler.NewUserHandler(users),
		Groups:    handler.NewFlashCardGroupHandler(groups),
		Cards:     handler.NewFlashCardHandler(cards, groups),
		Podcasts:  handler.NewPodcastHandler(series, seasons, episodes),
		Admin:     handler.NewPodcastAdminHandler(series, seasons, episodes, uploadService),
		AppConfig: handler.NewAppConfigHandler(appConfigs),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runWorker(ctx, queueClient, cfg, episodes, storage)
	go runSweeper(ctx, sessions)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	log.Printf("server: listening on :%s (env=%s)", cfg.Port, cfg.Env)

	<-ctx.Done()
	log.Println("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown: %v", err)
	}
}

// runWorker consumes transcoding jobs until ctx is cancelled,
// re-opening the consumer channel when the broker drops it.
func runWorker(ctx context.Context, client *queue.Client, cfg config.Config, episodes *repository.PodcastEpisodeRepo, storage *media.Storage) {
	w := worker.New(media.NewFFmpeg(cfg.FFmpegPath), episodes, storage)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		deliveries, err := client.Consume("transcoding-worker")
		if err != nil {
			log.Printf("worker: open consumer: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := w.Run(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: consume loop ended: %v; reconnecting", err)
		}
	}
}

// runSweeper deletes long-expired refresh tokens once a day.
func runSweeper(ctx context.Context, sessions *repository.RefreshTokenRepo) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				log.Printf("sweeper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: removed %d expired refresh tokens", n)
			}
		}
	}
}
