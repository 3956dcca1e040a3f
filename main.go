package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"natours/internal/config"
	"natours/internal/db"
	router "natours/internal/http"
	"natours/internal/integrations/imaging"
	"natours/internal/integrations/mailer"
	"natours/internal/integrations/payments"
	"natours/internal/jobs"
	"natours/internal/logging"
	"natours/internal/repositories"
	"natours/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(env.Log.Level, env.Log.Format)

	// last-resort supervisor: log and exit, the process manager restarts us
	defer func() {
		if r := recover(); r != nil {
			log.WithLevel(zerolog.FatalLevel).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("UNCAUGHT EXCEPTION! Shutting down...")
			os.Exit(1)
		}
	}()

	if err := run(env, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(env config.Env, log zerolog.Logger) error {
	if env.App.GinMode != "" {
		gin.SetMode(env.App.GinMode)
	} else if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.ConnectDB(env.Database)
	if err != nil {
		return err
	}
	defer config.CloseDB()
	log.Info().Str("db", env.Database.Name).Msg("DB connection successful!")

	if env.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.EnsureSchema(ctx, conn)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	mail := mailer.New(env.Email.ResendAPIKey, env.Email.From, log)

	var (
		rdb      *redis.Client
		welcomer services.Welcomer = jobs.Inline{Mailer: mail, Log: log}
	)
	if env.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: env.Redis.Addr})
		defer rdb.Close()

		worker := jobs.NewService(env.Redis.Addr, mail, log)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start jobs: %w", err)
		}
		defer worker.Stop()
		welcomer = worker
	}

	users := repositories.NewUserRepository(conn, log)
	tours := repositories.NewTourRepository(conn, log)
	reviews := repositories.NewReviewRepository(conn, log)
	bookings := repositories.NewBookingRepository(conn, log)

	auth := &services.AuthService{
		Users:    users,
		Tokens:   services.NewTokenManager(env.Auth.JWTSecret, env.Auth.JWTExpiresIn),
		Mailer:   mail,
		Welcomer: welcomer,
		Log:      log,
	}
	gateway := payments.NewStripeGateway(env.Stripe.SecretKey, env.Stripe.WebhookSecret, env.Stripe.Currency, log)

	r, err := router.NewRouter(env, log, router.Deps{
		DB:          conn,
		Redis:       rdb,
		Users:       users,
		Tours:       tours,
		Reviews:     reviews,
		Bookings:    bookings,
		Auth:        auth,
		TourService: services.TourService{Tours: tours},
		Images:      services.ImageService{Store: imaging.Resizer{Dir: env.App.PublicDir}},
		BookingSvc: services.BookingService{
			Bookings: bookings,
			Tours:    tours,
			Users:    users,
			Payments: gateway,
			Docs:     services.DocsService{Log: log},
			Log:      log,
		},
		Ratings: services.RatingService{Reviews: reviews, Tours: tours, Log: log},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              env.App.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", env.App.Addr).Str("env", env.App.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
