// Aplica las migraciones de Postgres y termina. Pensado para CI/CD.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bhoomi-id/bhoomi/internal/config"
	"github.com/bhoomi-id/bhoomi/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BHOOMI_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Storage.DSN == "" {
		fmt.Fprintln(os.Stderr, "BHOOMI_DSN requerido")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}
