package core

import (
	"context"
)

// DB is the part of *sql.DB the app surfaces depend on (health checks & shutdown).
type DB interface {
	PingContext(ctx context.Context) error
	Close() error
}
