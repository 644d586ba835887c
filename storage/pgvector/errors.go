package pgvector

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wothmag07/cssm/storage"
)

// ErrInvalidConfig indicates a missing or malformed connection setting.
var ErrInvalidConfig = errors.New("invalid pgvector configuration")

// classify marks err for the ingestion retry loop. Connection failures,
// timeouts, serialization conflicts and resource exhaustion are transient;
// other server errors are permanent. Context errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case strings.HasPrefix(code, "08"), // connection_exception
			strings.HasPrefix(code, "53"), // insufficient_resources
			code == "40001", code == "40P01", code == "55P03", code == "57P01", code == "57P03":
			return storage.Transient(err)
		default:
			return storage.Permanent(err)
		}
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return storage.Transient(err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return storage.Transient(err)
	}
	// Unknown failures keep the ingestion default.
	return err
}
