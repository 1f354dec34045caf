package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	_ "github.com/lib/pq"

	"github.com/quantnest/tradeflow/store"
	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

var (
	_ store.WorkflowStore  = &pgStore{}
	_ store.ExecutionStore = &pgStore{}
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "tradeflow",
		SSLMode:  "disable",
	}
}

// pgStore implements WorkflowStore and ExecutionStore using PostgreSQL
type pgStore struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store with the given configuration
func NewStore(config *Config) (*pgStore, error) {
	if config == nil {
		config = DefaultConfig()
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open postgres connection")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to ping postgres")
	}

	s := &pgStore{db: db}
	if err := s.initTables(context.Background()); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to initialize tables")
	}
	return s, nil
}

// NewStoreWithDB creates a new PostgreSQL store with an existing connection
func NewStoreWithDB(db *sql.DB) (*pgStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	s := &pgStore{db: db}
	if err := s.initTables(context.Background()); err != nil {
		return nil, errors.Annotatef(err, "failed to initialize tables")
	}
	return s, nil
}

func (p *pgStore) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS workflows (
			id VARCHAR(64) PRIMARY KEY,
			owner_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			nodes JSONB NOT NULL DEFAULT '[]',
			edges JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS executions (
			id VARCHAR(64) PRIMARY KEY,
			workflow_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			steps JSONB NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_executions_workflow_start
			ON executions(workflow_id, start_time DESC);
	`
	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return errors.Annotatef(err, "failed to create tables")
	}
	return nil
}

// FindAll returns every stored workflow. Workflows are written by the
// authoring surface; the engine only reads them.
func (p *pgStore) FindAll(ctx context.Context) ([]types.Workflow, error) {
	query := `SELECT id, owner_id, name, nodes, edges FROM workflows ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to list workflows")
	}
	defer rows.Close()

	workflows := make([]types.Workflow, 0)
	for rows.Next() {
		var w types.Workflow
		var nodes, edges []byte
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Name, &nodes, &edges); err != nil {
			return nil, errors.Annotatef(err, "failed to scan workflow")
		}
		if err := utils.Unserialize(nodes, &w.Nodes); err != nil {
			return nil, errors.Annotatef(err, "failed to decode nodes of workflow %s", w.ID)
		}
		if err := utils.Unserialize(edges, &w.Edges); err != nil {
			return nil, errors.Annotatef(err, "failed to decode edges of workflow %s", w.ID)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotatef(err, "error iterating workflows")
	}
	return workflows, nil
}

func (p *pgStore) Create(ctx context.Context, workflowID string, startTime time.Time) (*types.ExecutionRecord, error) {
	record := &types.ExecutionRecord{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     types.InProgress,
		StartTime:  startTime,
	}

	query := `INSERT INTO executions (id, workflow_id, status, start_time) VALUES ($1, $2, $3, $4)`
	if _, err := p.db.ExecContext(ctx, query, record.ID, record.WorkflowID, record.Status, record.StartTime); err != nil {
		return nil, errors.Annotatef(err, "failed to create execution for workflow %s", workflowID)
	}
	return record, nil
}

func (p *pgStore) Close(ctx context.Context, record *types.ExecutionRecord, status types.StatusType, endTime time.Time) error {
	steps, err := utils.Serialize(record.Steps)
	if err != nil {
		return errors.Trace(err)
	}

	query := `
		UPDATE executions SET status = $2, end_time = $3, steps = $4
		WHERE id = $1 AND status = $5
	`
	res, err := p.db.ExecContext(ctx, query, record.ID, status, endTime, steps, types.InProgress)
	if err != nil {
		return errors.Annotatef(err, "failed to close execution %s", record.ID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if affected == 0 {
		return errors.Forbiddenf("execution %s is not in progress", record.ID)
	}

	record.Status = status
	record.EndTime = &endTime
	return nil
}

func (p *pgStore) Latest(ctx context.Context, workflowID string) (*types.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, status, start_time, end_time, steps FROM executions
		WHERE workflow_id = $1 ORDER BY start_time DESC LIMIT 1
	`
	record, err := p.scanRecord(p.db.QueryRowContext(ctx, query, workflowID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load latest execution for workflow %s", workflowID)
	}
	return record, nil
}

func (p *pgStore) ListSince(ctx context.Context, workflowID string, since time.Time) ([]types.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, status, start_time, end_time, steps FROM executions
		WHERE workflow_id = $1 AND start_time >= $2 ORDER BY start_time DESC
	`
	rows, err := p.db.QueryContext(ctx, query, workflowID, since)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to list executions for workflow %s", workflowID)
	}
	defer rows.Close()

	records := make([]types.ExecutionRecord, 0)
	for rows.Next() {
		record, err := p.scanRecord(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotatef(err, "error iterating executions")
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *pgStore) scanRecord(row rowScanner) (*types.ExecutionRecord, error) {
	var record types.ExecutionRecord
	var endTime sql.NullTime
	var steps []byte
	if err := row.Scan(&record.ID, &record.WorkflowID, &record.Status, &record.StartTime, &endTime, &steps); err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		record.EndTime = &t
	}
	if len(steps) > 0 {
		if err := utils.Unserialize(steps, &record.Steps); err != nil {
			return nil, errors.Annotatef(err, "failed to decode steps of execution %s", record.ID)
		}
	}
	return &record, nil
}

// Close closes the database connection
func (p *pgStore) CloseDB() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// DSN builds a PostgreSQL connection string from Config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.User == "" {
		return errors.New("user cannot be empty")
	}
	if c.Database == "" {
		return errors.New("database cannot be empty")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return errors.Errorf("invalid sslmode: %s", c.SSLMode)
	}
	return nil
}

// ParseDSN parses a PostgreSQL connection string into a Config
// Format: "host=localhost port=5432 user=postgres password=secret dbname=tradeflow sslmode=disable"
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	parts := strings.Fields(dsn)
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key, value := kv[0], kv[1]
		switch key {
		case "host":
			config.Host = value
		case "port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err == nil {
				config.Port = port
			}
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		}
	}

	return config, config.Validate()
}
