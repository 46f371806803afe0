package corpus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"netsentry/internal/config"
	"netsentry/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    CreatedAt  DateTime,
    Duration   Float64,
    PacketSize Float64,
    Port       Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(CreatedAt)
ORDER BY CreatedAt;
`

// ClickHouseStore persists training feature rows so fitting passes can be
// re-run against the accumulated corpus instead of fresh synthetic data.
type ClickHouseStore struct {
	conn  driver.Conn
	table string
}

// NewClickHouseStore connects and ensures the corpus table exists.
func NewClickHouseStore(cfg config.ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Exec(context.Background(), fmt.Sprintf(createTableStatement, cfg.Table)); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured corpus table exists.")
	return &ClickHouseStore{conn: conn, table: cfg.Table}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Insert appends the feature rows in one batch, all stamped with the same
// insertion time.
func (s *ClickHouseStore) Insert(ctx context.Context, features []model.FeatureVector) error {
	if len(features) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, v := range features {
		if err := batch.Append(now, v.Duration, v.Size, v.Port); err != nil {
			return fmt.Errorf("failed to append feature row to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Wrote %d feature rows to ClickHouse table '%s'", len(features), s.table)
	return nil
}

// LoadAll reads the full corpus back in insertion order.
func (s *ClickHouseStore) LoadAll(ctx context.Context) ([]model.FeatureVector, error) {
	query := fmt.Sprintf("SELECT Duration, PacketSize, Port FROM %s ORDER BY CreatedAt", s.table)
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []model.FeatureVector
	for rows.Next() {
		var v model.FeatureVector
		if err := rows.Scan(&v.Duration, &v.Size, &v.Port); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Close releases the connection.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}
