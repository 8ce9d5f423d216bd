package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

// schemaSQL is compiled into the binary at build time so schema init works
// inside the Docker runtime image, which does not copy internal/db/schema.sql
// into the final stage.
//
//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for Fraud Checker")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Fraud audit schema initialized")
	return nil
}

// Append persists one audit row. Implements the audit sink consumed by the
// scoring pipeline.
func (s *PostgresStore) Append(ctx context.Context, entry models.FraudCheckLog) error {
	signals, err := json.Marshal(entry.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %v", err)
	}
	payload := entry.RequestPayload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	sql := `
		INSERT INTO fraud_check_logs
			(request_ip, ip_country_iso, fingerprint_id, origin, request_payload,
			 decision, risk_score, signals, captcha_required, captcha_verified,
			 challenge_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = s.pool.Exec(ctx, sql,
		nullIfEmpty(entry.RequestIP),
		nullIfEmpty(entry.IPCountryISO),
		entry.FingerprintID,
		nullIfEmpty(entry.Origin),
		payload,
		string(entry.Decision),
		entry.RiskScore,
		signals,
		entry.CaptchaRequired,
		entry.CaptchaVerified,
		nullIfEmpty(entry.ChallengeID),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fraud_check_logs: %v", err)
	}
	return nil
}

// GetLogs returns one page of audit rows, newest first, plus the total count.
func (s *PostgresStore) GetLogs(ctx context.Context, page, pageSize int) ([]models.FraudCheckLog, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_check_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `
		SELECT id, request_ip, ip_country_iso, fingerprint_id, origin,
		       request_payload, decision, risk_score, signals,
		       captcha_required, captcha_verified, challenge_id, created_at
		FROM fraud_check_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, dataSQL, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]models.FraudCheckLog, 0, pageSize)
	for rows.Next() {
		var entry models.FraudCheckLog
		var requestIP, countryISO, origin, challengeID *string
		var decision string
		var signals []byte
		err := rows.Scan(
			&entry.ID, &requestIP, &countryISO, &entry.FingerprintID, &origin,
			&entry.RequestPayload, &decision, &entry.RiskScore, &signals,
			&entry.CaptchaRequired, &entry.CaptchaVerified, &challengeID, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		entry.RequestIP = strOrEmpty(requestIP)
		entry.IPCountryISO = strOrEmpty(countryISO)
		entry.Origin = strOrEmpty(origin)
		entry.ChallengeID = strOrEmpty(challengeID)
		entry.Decision = models.Decision(decision)
		entry.Signals = make([]models.FraudSignal, 0)
		if len(signals) > 0 {
			if err := json.Unmarshal(signals, &entry.Signals); err != nil {
				return nil, 0, fmt.Errorf("corrupt signals payload in row %d: %v", entry.ID, err)
			}
		}
		logs = append(logs, entry)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return logs, total, nil
}

// GetPool exposes the connection pool for health checks and other subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
