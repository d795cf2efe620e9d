package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"eventservices/pkg/authtoken"
	"eventservices/pkg/config"
)

// devtoken mints a staff bearer token signed with AUTH_JWT_SECRET.
func main() {
	var (
		id   = flag.String("id", "dev-staff", "staff id (token subject)")
		name = flag.String("name", "Dev Staff", "display name")
		role = flag.String("role", string(authtoken.RoleStaff), "staff or admin")
		ttl  = flag.Duration("ttl", 0, "token lifetime (defaults to AUTH_TOKEN_TTL)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET is not set")
		os.Exit(2)
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	tok, err := authtoken.Issue(cfg.Auth.JWTSecret, cfg.Auth.Issuer, authtoken.Staff{
		ID:   *id,
		Name: *name,
		Role: authtoken.Role(*role),
	}, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
