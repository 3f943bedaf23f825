package sqlite

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fiverrclaw/fiverrclaw/internal/db"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.AgentRepo = (*SQLiteRepo)(nil)
var _ repository.WorkerRepo = (*SQLiteRepo)(nil)
var _ repository.JobRepo = (*SQLiteRepo)(nil)
var _ repository.CommentRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

// marshalJSON encodes list/struct columns, falling back to the given
// zero literal so columns are never NULL.
func marshalJSON(v any, zero string) string {
	b, err := json.Marshal(v)
	if err != nil {
		return zero
	}
	return string(b)
}
