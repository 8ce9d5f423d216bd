package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/axlrose023/fraud-checker/internal/api"
	"github.com/axlrose023/fraud-checker/internal/captcha"
	"github.com/axlrose023/fraud-checker/internal/config"
	"github.com/axlrose023/fraud-checker/internal/db"
	"github.com/axlrose023/fraud-checker/internal/fraud"
	"github.com/axlrose023/fraud-checker/internal/geoip"
)

func main() {
	// Local development reads .env; production sets real environment
	// variables and has no .env file, which is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := config.Load()
	log.Printf("Starting %s v%s (env: %s)...", cfg.API.Title, cfg.API.Version, cfg.Env)

	var dbConn *db.PostgresStore
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL is not set, running without the audit log")
	} else {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without the audit log. Error: %v", err)
		} else {
			dbConn = conn
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	}

	// Setup WebSocket Hub for the live decision stream
	wsHub := api.NewHub()
	go wsHub.Run()

	geoClient := geoip.NewClient(cfg.Fraud)
	verifier := captcha.NewTurnstile(cfg.Fraud)
	if !verifier.IsConfigured() {
		log.Println("Warning: Turnstile keys are not set, review verdicts will not carry a captcha challenge")
	}

	var auditSink fraud.AuditSink
	if dbConn != nil {
		auditSink = dbConn
	}
	var geoResolver fraud.IpGeoResolver
	if geoClient != nil {
		geoResolver = geoClient
	}

	service := fraud.NewService(cfg.Fraud, geoResolver, verifier, auditSink, wsHub)

	r := api.SetupRouter(cfg, service, dbConn, wsHub)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	log.Printf("Engine running on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
