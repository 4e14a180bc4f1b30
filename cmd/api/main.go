package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	accountrepo "github.com/reservalia/service-accounts-go/internal/account/repo"
	"github.com/reservalia/service-accounts-go/internal/auth"
	authrepo "github.com/reservalia/service-accounts-go/internal/auth/repo"
	"github.com/reservalia/service-accounts-go/internal/router"
	"github.com/reservalia/service-accounts-go/pkg/database"
	"github.com/reservalia/service-accounts-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-accounts")

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// ensure schema
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	accounts := accountrepo.NewAccountRepo(db)
	if err := accounts.EnsureTable(startCtx); err != nil {
		startCancel()
		sugar.Fatalf("ensure accounts table: %v", err)
	}
	sessions := authrepo.NewSessionRepo(db)
	if err := sessions.EnsureTable(startCtx); err != nil {
		startCancel()
		sugar.Fatalf("ensure auth_sessions table: %v", err)
	}
	startCancel()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}

	handler := router.RegisterRoutes(sugar, accounts, sessions, auth.ConfigFromEnv())
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Infow("service is running", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
