package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	statistics "demo-data-generator/internal/statistics/domain"
)

// classify marks connectivity failures as statistics.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil || errors.Is(err, statistics.ErrStoreUnavailable) {
		return err
	}
	if unavailable(err) {
		return fmt.Errorf("%w: %w", statistics.ErrStoreUnavailable, err)
	}
	return err
}

func unavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection exception, 57P0x operator intervention, 53300 too many connections
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0") || pgErr.Code == "53300"
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
