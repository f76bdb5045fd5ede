// Command devtoken prints an access token signed with JWT_SECRET, for
// calling the reserve and cancel endpoints locally.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func main() {
	sub := flag.String("sub", "dev-user", "token subject")
	role := flag.String("role", "CUSTOMER", "role claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(cfg.JWT.Secret, *sub, *role, time.Duration(cfg.JWT.AccessTTLMin)*time.Minute)
	if err != nil {
		logger.Fatal("sign token", "error", err)
	}
	fmt.Println(tok.Token)
}
