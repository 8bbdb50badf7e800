package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/db/migrate"
	"github.com/chrislovescoding/AuditSuite-sub000/migrations"
	"github.com/chrislovescoding/AuditSuite-sub000/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn      = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
		level    = flag.String("log-level", "info", "Log level")
		timeout  = flag.Duration("timeout", 30*time.Second, "Overall timeout")
		tableFlg = flag.String("table", "", "Override the migrations bookkeeping table")
	)
	flag.Parse()

	log := logger.New(logger.Options{Level: *level, Pretty: true, Service: "auditsuite-migrate"})

	if *dsn == "" {
		log.Fatal().Msg("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal().Msg("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	opts := []migrate.Option{migrate.WithLogger(log)}
	if *tableFlg != "" {
		opts = append(opts, migrate.WithTable(*tableFlg))
	}
	mgr := migrate.NewManager(db, migrations.FS, opts...)

	switch cmd := flag.Arg(0); cmd {
	case "up":
		applied, err := mgr.Up(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate up")
		}
		log.Info().Int("applied", len(applied)).Msg("migrations up to date")
	case "down":
		name, err := mgr.Down(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate down")
		}
		log.Info().Str("migration", name).Msg("rolled back")
	case "status":
		history, err := mgr.Status(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate status")
		}
		for _, item := range history {
			fmt.Println(item)
		}
	default:
		log.Fatal().Str("command", cmd).Msg("unknown command")
	}
}
