// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"forum/internal/config"
	"forum/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("schema migrated")
	case "status":
		migrator := db.Migrator()
		pending := 0
		for _, m := range database.PersistentModels() {
			stmt := db.Model(m).Statement
			if err := stmt.Parse(m); err != nil {
				return fmt.Errorf("parse model: %w", err)
			}
			table := stmt.Schema.Table
			if migrator.HasTable(m) {
				log.Printf("present: %s", table)
				continue
			}
			pending++
			log.Printf("missing: %s", table)
		}
		log.Printf("driver=%s env=%s missing=%d", cfg.DBDriver, cfg.Env, pending)
	default:
		return usage()
	}

	return nil
}
