package cmd

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zlovtnik/iead-sub002/api"
	"github.com/zlovtnik/iead-sub002/auth"
	"github.com/zlovtnik/iead-sub002/identity"
)

var (
	port           int
	dataDir        string
	sessionBackend string
	redisAddr      string
	trustedProxies []string
	maxAttempts    int
	windowMinutes  int
	sessionHours   int
	extendedDays   int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authorization server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		users, err := identity.NewBoltDirectoryFromFile(dataDir+"/identity.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open identity directory: %w", err)
		}
		defer users.Close()

		store, closeStore, err := openSessionStore()
		if err != nil {
			return err
		}
		defer closeStore()

		sessions := auth.NewManager(store, users, auth.WithSessionTTLs(
			time.Duration(sessionHours)*time.Hour,
			time.Duration(extendedDays)*24*time.Hour,
		))
		limiter := auth.NewSlidingWindowLimiter(auth.LimiterConfig{
			MaxAttempts: maxAttempts,
			Window:      time.Duration(windowMinutes) * time.Minute,
		})

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		opts := []api.Option{api.WithLogger(logger)}
		if len(trustedProxies) > 0 {
			opt, err := api.WithTrustedProxies(trustedProxies)
			if err != nil {
				return err
			}
			opts = append(opts, opt)
		}
		opts = append(opts, api.WithAlertFunc(func(ev api.AlertEvent) {
			logger.Warn("anomaly alert",
				slog.String("type", string(ev.Type)),
				slog.String("message", ev.Message),
				slog.Int("count", ev.Count))
		}))

		a := api.New(users, sessions, limiter, opts...)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		fmt.Printf("Starting authd on port %d (data: %s, sessions: %s)...\n", port, dataDir, sessionBackend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openSessionStore builds the configured session backend. The close
// func is a no-op for backends without resources to release.
func openSessionStore() (auth.SessionStore, func(), error) {
	switch sessionBackend {
	case "memory":
		return auth.NewMemorySessionStore(), func() {}, nil
	case "bolt":
		store, err := auth.NewBoltSessionStoreFromFile(dataDir+"/sessions.db", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, func() { store.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return auth.NewRedisSessionStore(client), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", sessionBackend)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&sessionBackend, "session-backend", "memory", "Session store backend (memory, bolt, redis)")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address for the redis session backend")
	serverCmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxies", nil, "CIDR ranges whose proxy headers are trusted")
	serverCmd.Flags().IntVar(&maxAttempts, "login-max-attempts", auth.DefaultMaxAttempts, "Login attempts allowed per identifier within the window")
	serverCmd.Flags().IntVar(&windowMinutes, "login-window-minutes", int(auth.DefaultWindow.Minutes()), "Login rate-limit window in minutes")
	serverCmd.Flags().IntVar(&sessionHours, "session-hours", int(auth.DefaultSessionTTL.Hours()), "Plain session lifetime in hours")
	serverCmd.Flags().IntVar(&extendedDays, "extended-session-days", int(auth.ExtendedSessionTTL.Hours()/24), "Extended session lifetime in days")
}
