// Package postgres runs parameterized aggregations against the regional
// relational schema.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"

	"nexusbuy-analytics/pkg/logging/logging"
)

type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	return c
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.SSLMode, validation.In("disable", "require", "verify-ca", "verify-full")),
	)
}

// DSN renders the lib/pq connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Store implements analytics.Relational on PostgreSQL.
type Store struct {
	db *bun.DB
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}

	sqldb, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres open failed: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := New(bun.NewDB(sqldb, pgdialect.New()))
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing bun handle.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Aggregate runs query with positional ($1, $2, ...) arguments bound by the
// driver and returns each row keyed by column name. NUMERIC columns come
// back as decimal.Decimal, JSON columns decoded; other byte values as strings.
func (s *Store) Aggregate(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	start := time.Now()

	// Bypass bun's formatter so arguments reach the server as bind parameters.
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("postgres column types: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres scan failed: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v, err := convertValue(col.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name(), err)
			}
			row[col.Name()] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows failed: %w", err)
	}

	logging.L(ctx).Debug("postgres_aggregate",
		zap.Int("rows", len(out)),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func convertValue(dbType string, v any) (any, error) {
	b, ok := v.([]byte)
	if !ok {
		return v, nil
	}
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL":
		d, err := decimal.NewFromString(string(b))
		if err != nil {
			return nil, err
		}
		return d, nil
	case "JSON", "JSONB":
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return string(b), nil
	}
}

// regionalTables lists the tables ExistsInRegion may be asked about. The
// name is part of the statement text, so it never comes from a caller.
var regionalTables = map[string]bool{
	"sellermanagement.stores": true,
	"productcatalog.products": true,
	"orderprocessing.orders":  true,
}

// ExistsInRegion reports whether table has a row with id in region.
func (s *Store) ExistsInRegion(ctx context.Context, table string, id int64, region string) (bool, error) {
	if !regionalTables[table] {
		return false, fmt.Errorf("postgres exists: table %q is not a regional table", table)
	}

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND region = $2)", table)

	var ok bool
	if err := s.db.DB.QueryRowContext(ctx, query, id, region).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres exists %s: %w", table, err)
	}
	return ok, nil
}
