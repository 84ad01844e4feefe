package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/accounts"
	"github.com/felicity-dev/felicity/internal/config"
	"github.com/felicity-dev/felicity/internal/realtime"
	"github.com/felicity-dev/felicity/internal/scheduler"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

type app struct {
	dig.In

	Config     config.Config
	DB         *gorm.DB
	Discussion *discussionBackend
	Accounts   *accounts.Service
	Dispatcher *scheduler.Dispatcher
	Hub        *realtime.Hub
	Reporter   services.Reporter
	Engine     *gin.Engine
}

func main() {
	c, err := buildContainer()

	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	if err = c.Invoke(run); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func run(a app) error {
	defer a.Reporter.Close()

	defer func() {
		if err := db.Close(a.DB); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	if a.Discussion.client != nil {
		defer func() {
			if err := a.Discussion.client.Disconnect(context.Background()); err != nil {
				log.Printf("Failed to disconnect mongo: %v", err)
			}
		}()
	}

	if a.Config.AdminEmail != "" {
		if err := a.Accounts.EnsureAdmin(context.Background(), a.Config.AdminEmail, a.Config.AdminPassword); err != nil {
			return err
		}
	}

	if err := a.Dispatcher.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.Engine,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Printf("Felicity listening on :%s", a.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		a.Dispatcher.Stop()
		a.Hub.Close()
		return err
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()

	// Closing the hub ends every websocket pump so Shutdown is not held open.
	a.Hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	a.Dispatcher.Stop()

	log.Println("Server exited")
	return nil
}
