package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleet-fines/internal/config"
	apperrors "github.com/fleet-fines/internal/errors"
	go_ora "github.com/sijms/go-ora/v2"
)

// OracleClient is a read-only Querier backed by the Globus Oracle instance.
// It holds no state across calls beyond the connection pool.
type OracleClient struct {
	db           *sql.DB
	queryTimeout time.Duration
	breaker      *Breaker
}

// NewOracleClient opens a connection pool against the source and verifies it.
func NewOracleClient(cfg *config.OracleConfig) (*OracleClient, error) {
	port, err := parsePort(cfg.Port)
	if err != nil {
		return nil, err
	}

	url := go_ora.BuildUrl(cfg.Host, port, cfg.Service, cfg.User, cfg.Password, nil)
	db, err := sql.Open("oracle", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping oracle: %w", err)
	}

	return &OracleClient{
		db:           db,
		queryTimeout: cfg.QueryTimeout,
		breaker:      NewBreaker(DefaultBreakerConfig("globus")),
	}, nil
}

// Close closes the underlying connection pool.
func (c *OracleClient) Close() error {
	return c.db.Close()
}

// Ping checks if the source is reachable.
func (c *OracleClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Query executes a bound read-only query under the configured timeout. All
// failures, including timeouts and an open circuit, surface as
// SOURCE_UNAVAILABLE; zero rows is a successful empty result.
func (c *OracleClient) Query(ctx context.Context, query string, binds ...Bind) ([]Row, error) {
	rows := []Row{}

	err := c.breaker.Execute(func() error {
		qctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()

		args := make([]interface{}, len(binds))
		for i, b := range binds {
			args[i] = sql.Named(b.Name, b.Value)
		}

		result, err := c.db.QueryContext(qctx, query, args...)
		if err != nil {
			return err
		}
		defer result.Close()

		cols, err := result.Columns()
		if err != nil {
			return err
		}

		for result.Next() {
			values := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := result.Scan(ptrs...); err != nil {
				return err
			}

			row := make(Row, len(cols))
			for i, col := range cols {
				row[col] = values[i]
			}
			rows = append(rows, row)
		}

		return result.Err()
	})
	if err != nil {
		return nil, apperrors.NewSourceUnavailable(err)
	}

	return rows, nil
}

func parsePort(s string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(s, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid oracle port %q: %w", s, err)
	}
	return port, nil
}
