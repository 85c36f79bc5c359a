package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

// ResetViper clears the global viper state now and again when the test ends.
func ResetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetViperValues resets viper and applies the given overrides. The state is
// reset again on cleanup.
func SetViperValues(t *testing.T, values map[string]any) {
	t.Helper()
	ResetViper(t)
	for k, v := range values {
		viper.Set(k, v)
	}
}

// SetupTestCache points cache.dbfile at a database inside env and returns
// its path.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "novelseek-cache.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		t.Fatalf("failed to create cache directory: %v", err)
	}
	viper.Set("cache.dbfile", dbPath)
	return dbPath
}
