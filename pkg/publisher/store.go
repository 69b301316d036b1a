package publisher

import (
	"log/slog"
)

// Store backend names.
const (
	StoreXenstore = "xenstore"
	StoreLog      = "log"
)

// Store is the key/value sink the schemas write to. Operations are
// synchronous and idempotent; Delete removes the key and everything below
// it.
type Store interface {
	Write(key, value string) error
	Delete(key string) error
}

// LogStore only logs, for dry runs and hosts without XenStore access.
type LogStore struct {
	log *slog.Logger
}

// NewLogStore builds a LogStore writing to logger.
func NewLogStore(logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &LogStore{log: logger.With("component", "store")}
}

// Write logs the write.
func (s *LogStore) Write(key, value string) error {
	s.log.Info("write", "key", key, "value", value)

	return nil
}

// Delete logs the delete.
func (s *LogStore) Delete(key string) error {
	s.log.Info("delete", "key", key)

	return nil
}
