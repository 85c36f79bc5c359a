package cache

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// InvalidateCacheCmd clears one cache table.
type InvalidateCacheCmd struct {
	Table string `arg:"" help:"Cache to clear: search, detail, cover" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	tableName, ok := SourceTables[i.Table]
	if !ok {
		valid := slices.Sorted(maps.Keys(SourceTables))
		return fmt.Errorf("invalid cache %q; valid caches are: %s", i.Table, strings.Join(valid, ", "))
	}

	c, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	rows, err := c.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "cache", i.Table, "database", c.Path(), "rows_deleted", rows)
	return nil
}

// PruneCacheCmd removes expired entries from every cache table.
type PruneCacheCmd struct{}

func (p *PruneCacheCmd) Run() error {
	c, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	var total int64
	for _, table := range slices.Sorted(maps.Keys(ValidCacheTableNames)) {
		n, err := c.ClearExpired(table)
		if err != nil {
			return err
		}
		total += n
	}
	slog.Info("Expired cache entries removed", "count", total)
	return nil
}
