// cmd/tools/dbmigrate/main.go
//
// Runs the league database migrations outside the server, for CI and for
// inspecting a database copy locally. The server applies the same embedded
// migrations on startup; this tool exists for the cases where you want a
// down migration or the current version without booting it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		dbPath         = flag.String("db", "", "path to the sqlite database file")
		migrationsPath = flag.String("migrations", "internal/db/migrations", "path to the migrations directory")
		command        = flag.String("command", "", "up, down, or version")
	)
	flag.Parse()

	if *dbPath == "" || *migrationsPath == "" || *command == "" {
		log.Println("all flags are required:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	absDB, err := filepath.Abs(*dbPath)
	if err != nil {
		log.Fatalf("invalid database path: %v", err)
	}
	absMigrations, err := filepath.Abs(*migrationsPath)
	if err != nil {
		log.Fatalf("invalid migrations path: %v", err)
	}
	if _, err := os.Stat(absMigrations); os.IsNotExist(err) {
		log.Fatalf("migrations directory does not exist: %s", absMigrations)
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatalf("create database directory: %v", err)
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", absMigrations),
		fmt.Sprintf("sqlite3://%s", absDB),
	)
	if err != nil {
		log.Fatalf("open migrator: %v", err)
	}
	defer m.Close()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("read version: %v", err)
		}
		log.Printf("version %d, dirty %v", version, dirty)
	default:
		log.Fatalf("unknown command %q (want up, down, or version)", *command)
	}
}
