// catalog-import runs the catalog reconciliation pipeline from a terminal,
// straight against the database, without the HTTP server.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/catalog-import --business-id <id> validate brand ./brands.xlsx
//	go run ./cmd/catalog-import --business-id <id> commit brand ./brands.xlsx
//	go run ./cmd/catalog-import --business-id <id> runs list --kind brand
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
