// Command token emite un JWT de desarrollo para llamar a la API.
//
//	go run ./cmd/token -user officer-1 -role logistics_officer -base BASE-A
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"asset-ledger/internal/config"
	"asset-ledger/internal/middleware"
	"asset-ledger/internal/models"
)

func main() {
	userID := flag.String("user", "", "user id (required)")
	role := flag.String("role", string(models.RoleLogisticsOfficer), "admin | base_commander | logistics_officer")
	baseID := flag.String("base", "", "base id of the user")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_EXPIRY_HOURS)")
	flag.Parse()

	actor := models.Actor{UserID: *userID, Role: models.Role(*role), BaseID: *baseID}
	if actor.UserID == "" || !actor.Role.IsValid() {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	expiry := *ttl
	if expiry <= 0 {
		expiry = time.Duration(cfg.JWT.ExpiryHours) * time.Hour
	}

	token, err := middleware.NewTokenIssuer(cfg.JWT.Secret, expiry).GenerateToken(actor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
