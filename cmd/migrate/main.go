// Package main 数据库迁移入口
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"tracehub-api/internal/config"
	"tracehub-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	command := flag.String("command", "up", "migration command: up or status")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall migration timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.Postgres.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	switch *command {
	case "up":
		fmt.Println("Applying migrations...")
		if err := postgres.RunMigrations(ctx, db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Println("Migrations applied")
	case "status":
		if err := postgres.MigrationStatus(ctx, db); err != nil {
			log.Fatalf("failed to read migration status: %v", err)
		}
	default:
		log.Fatalf("unknown command %q", *command)
	}
}
