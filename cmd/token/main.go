package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/config"
)

// token issues an admin API token for a staff chat id
func main() {
	var actorID int64
	flag.Int64Var(&actorID, "actor", 0, "Staff chat id the token is issued for")
	flag.Parse()

	if actorID == 0 {
		fmt.Fprintln(os.Stderr, "Usage: token -actor <chat id>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	token, expires, err := auth.NewJWTService(cfg.JWT).Issue(actorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
}
