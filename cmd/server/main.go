package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mail-dispatch/internal/api"
	"github.com/ignite/mail-dispatch/internal/config"
	"github.com/ignite/mail-dispatch/internal/dispatch"
	"github.com/ignite/mail-dispatch/internal/pkg/logger"
)

// checkPortAvailable verifies that the target port is not already in
// use, so a stale process doesn't silently swallow traffic.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.RedactPII, os.Stderr)

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	if cfg.SMTP.InsecureSkipVerify {
		appLog.Warn("TLS certificate validation is DISABLED (smtp.insecure_skip_verify)")
	}

	opener := dispatch.NewSMTPOpener(
		cfg.SMTP.ConnectTimeout(),
		cfg.SMTP.SendTimeout(),
		cfg.SMTP.InsecureSkipVerify,
	)
	dispatcher := dispatch.NewDispatcher(opener, dispatch.NewRenderer(), appLog)
	handlers := api.NewHandlers(dispatcher, appLog)
	router := api.SetupRoutes(handlers, cfg.Server)

	addr := fmt.Sprintf("%s:%d", host, port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		appLog.Info("server starting", "addr", addr, "send_timeout_seconds", cfg.SMTP.SendTimeoutSeconds)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	appLog.Info("shutting down")

	// In-flight batches get a grace period to reach a safe point.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server shutdown error", "error", err.Error())
	}

	appLog.Info("server stopped")
}
