package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/univault/univault/internal/server"
	"github.com/univault/univault/modules/audit"
	"github.com/univault/univault/modules/core"
	"github.com/univault/univault/modules/thesis"
	"github.com/univault/univault/pkg/application"
	"github.com/univault/univault/pkg/configuration"
	"github.com/univault/univault/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	if err := runMigrations(pool, conf.MigrationsDir); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	// Audit first: the other modules resolve its services at registration.
	modules := []application.Module{
		audit.NewModule(),
		core.NewModule(),
		thesis.NewModule(),
	}
	for _, module := range modules {
		if err := module.Register(app); err != nil {
			log.Fatalf("failed to register module %s: %v", module.Name(), err)
		}
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.ListenAndServe(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func runMigrations(pool *pgxpool.Pool, dir string) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, dir)
}
