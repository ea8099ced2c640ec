package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	authcore "github.com/lexireport/authcore"
	"github.com/lexireport/authcore/jwt"
	"github.com/lexireport/authcore/store"
)

func main() {
	var (
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		pgDSN     = flag.String("pg-dsn", "", "postgres DSN; if empty, an in-memory user store is used")
	)
	flag.Parse()

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	defer client.Close()

	var (
		users  store.UserRepository
		grants store.GrantRepository
	)
	if *pgDSN != "" {
		pg, err := store.OpenPostgres(*pgDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open postgres: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		users, grants = pg, pg
		fmt.Println("using postgres user store")
	} else {
		mem := store.NewMemory()
		users, grants = mem, mem
		fmt.Println("using in-memory user store")
	}

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	cfg := authcore.DefaultConfig()
	cfg.JWT = jwt.Config{
		SigningMethod: jwt.MethodHS256,
		Secret:        []byte("demo-secret-do-not-use-in-production"),
		Issuer:        "authcore-demo",
	}
	cfg.Logger = log

	gateway, err := authcore.New(cfg, authcore.Dependencies{
		Redis:  client,
		Users:  users,
		Grants: grants,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build gateway: %v\n", err)
		os.Exit(1)
	}

	admin, err := gateway.Register(ctx, "admin@example.com", "Str0ng!Passw0rd", authcore.RoleAdmin)
	must(err, "register admin")
	alice, err := gateway.Register(ctx, "alice@example.com", "An0ther!Passw0rd", authcore.RoleUser)
	must(err, "register alice")

	pair, err := gateway.Login(ctx, "alice@example.com", "An0ther!Passw0rd")
	must(err, "login alice")
	fmt.Printf("alice session %s\n", pair.SessionID)

	principal, err := gateway.Authenticate(ctx, pair.AccessToken)
	must(err, "authenticate alice")

	allowed, err := gateway.Authorize(ctx, principal, authcore.PermReportRead)
	must(err, "authorize report:read")
	fmt.Printf("alice report:read = %v\n", allowed)

	allowed, err = gateway.Authorize(ctx, principal, authcore.PermReportUpdate)
	must(err, "authorize report:update")
	fmt.Printf("alice report:update = %v (before grant)\n", allowed)

	must(gateway.Resolver().Grant(ctx, admin, alice, authcore.PermReportUpdate, "demo grant"), "grant report:update")

	allowed, err = gateway.Authorize(ctx, principal, authcore.PermReportUpdate)
	must(err, "authorize report:update")
	fmt.Printf("alice report:update = %v (after grant)\n", allowed)

	must(gateway.Resolver().TemporarilyRevoke(ctx, admin, alice, authcore.PermReportUpdate, 30*time.Minute, "demo suspension"), "revoke report:update")

	allowed, err = gateway.Authorize(ctx, principal, authcore.PermReportUpdate)
	must(err, "authorize report:update")
	fmt.Printf("alice report:update = %v (while revoked)\n", allowed)

	adminPrincipal := &authcore.Principal{User: admin}
	entries, err := gateway.QueryAudit(ctx, adminPrincipal, authcore.AuditFilter{Target: alice.ID})
	must(err, "query audit")
	for _, e := range entries {
		fmt.Printf("audit: %s %s %s\n", e.Action, e.Permission, e.Reason)
	}

	must(gateway.Logout(ctx, pair.SessionID), "logout alice")
	if _, err := gateway.Authenticate(ctx, pair.AccessToken); err != nil {
		fmt.Printf("alice token after logout: %v\n", err)
	}
}

func must(err error, what string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
		os.Exit(1)
	}
}
