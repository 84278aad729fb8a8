// Command tokengen mints bearer tokens for local development and testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"verifid/internal/token"
	id "verifid/pkg/domain"
)

func main() {
	var (
		userID = flag.String("user", "00000000-0000-0000-0000-000000000001", "subject user id (uuid)")
		key    = flag.String("key", "", "JWT signing key (defaults to $JWT_SIGNING_KEY)")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	signingKey := *key
	if signingKey == "" {
		signingKey = os.Getenv("JWT_SIGNING_KEY")
	}
	if signingKey == "" {
		signingKey = "dev-secret-key-change-in-production"
	}

	uid, err := id.ParseUserID(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid user id:", err)
		os.Exit(1)
	}

	svc := token.NewService(signingKey, *ttl)
	signed, err := svc.GenerateToken(uid.String())
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate token:", err)
		os.Exit(1)
	}
	fmt.Println(signed)
}
