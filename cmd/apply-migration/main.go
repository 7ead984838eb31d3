package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kmallmaperez/geocore/common/database"
	"github.com/kmallmaperez/geocore/internal/config"
	"github.com/kmallmaperez/geocore/internal/repository"
)

// Applies the built-in schema, or the SQL file given as the first argument.
func main() {
	script := repository.SchemaSQL()
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}
		script = string(b)
	}

	cfg := config.Default()
	cfg.Database.LoadFromEnv("DB")

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	stmts := repository.Statements(script)
	for i, stmt := range stmts {
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(stmts))
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
		}
	}

	fmt.Println("Migration completed successfully")
}
