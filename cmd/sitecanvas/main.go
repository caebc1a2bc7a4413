package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sitecanvas/infrastructure/audit"
	"sitecanvas/infrastructure/cache"
	httpserver "sitecanvas/infrastructure/http"
	"sitecanvas/infrastructure/rbac"
	"sitecanvas/infrastructure/sqlite"
)

func main() {
	addr := getenv("APP_ADDR", ":8080")
	baseURL := getenv("APP_BASE_URL", "")
	dbPath := getenv("SQLITE_PATH", "sitecanvas.db")

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// Empty MIGRATIONS_DIR runs the embedded migration files.
	if err := sqlite.ApplyMigrations(context.Background(), db, getenv("MIGRATIONS_DIR", "")); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()

	// baseURL feeds the QR share link on PDF reports; empty leaves the QR out.
	server := httpserver.NewServer(addr, baseURL, db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc)
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("sitecanvas listening on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
