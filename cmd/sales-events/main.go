// Command sales-events demonstrates the event emitter: a sale announcement
// with several listeners, and an HTTP server that emits "request" for every
// incoming request.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"natours/internal/events"
	"natours/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	flag.Parse()

	log := logging.New("info", "console")

	sales := events.NewEmitter()
	sales.On("newSale", func(...any) { log.Info().Msg("There was a new sale!") })
	sales.On("newSale", func(...any) { log.Info().Str("customer", "Jonas").Msg("Customer name") })
	sales.On("newSale", func(args ...any) {
		if len(args) > 0 {
			log.Info().Interface("stock", args[0]).Msg("items left in stock")
		}
	})
	sales.Emit("newSale", 9)

	server := events.NewEmitter()
	server.On("request", func(args ...any) {
		r := args[0].(*http.Request)
		log.Info().Str("url", r.URL.String()).Msg("Request received!")
	})
	server.On("request", func(...any) { log.Info().Msg("Another request") })
	server.On("close", func(...any) { log.Info().Msg("Server closed") })

	srv := &http.Server{
		Addr:              *addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			server.Emit("request", r)
			_, _ = w.Write([]byte("Dummy"))
		}),
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("Waiting for requests...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	server.Emit("close")
}
