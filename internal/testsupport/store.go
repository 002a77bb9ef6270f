package testsupport

import (
	"testing"

	"slidemill/internal/config"
	"slidemill/internal/history"
	"slidemill/internal/logging"
)

// MustOpenHistory opens the history database named by cfg and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.Paths.HistoryDB, logging.NewNop())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
