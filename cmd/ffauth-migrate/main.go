// Command ffauth-migrate applies the Postgres session store schema from
// embedded SQL.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/ffauth/internal/config"
	"github.com/MrEthical07/ffauth/session/pgstore"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	dsn := config.DatabaseURL()
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; export it or add it to .env")
		os.Exit(1)
	}

	if err := pgstore.Migrate(dsn, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations applied (%s)\n", *direction)
}
