// Command resumerank-migrate applies the pending goose migrations embedded
// in pkg/store against a Postgres database, then exits. It replaces the
// bbolt-specific migration tool this codebase's predecessor shipped, since
// the State Store Gateway here is Postgres rather than an embedded bbolt
// file.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/neerajsharma26/resumerank/pkg/store"
)

func main() {
	dsn := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "Postgres connection string")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "resumerank-migrate: -postgres-dsn or POSTGRES_DSN is required")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resumerank-migrate: open: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "resumerank-migrate: migrate: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("resumerank-migrate: migrations applied")
}
