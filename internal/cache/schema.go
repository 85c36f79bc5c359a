package cache

// Cache tables share one layout: a JSON payload per cache_key and an
// absolute expiry in unix seconds.
const tableLayout = `(
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at INTEGER NOT NULL
)`

// Table names.
const (
	SearchTable = "search_cache"
	DetailTable = "detail_cache"
	CoverTable  = "cover_cache"
)

// SearchCacheSchema holds platform search pages keyed by platform, keyword and page.
const SearchCacheSchema = `
CREATE TABLE IF NOT EXISTS search_cache ` + tableLayout + `;
CREATE INDEX IF NOT EXISTS idx_search_expires_at ON search_cache(expires_at);
`

// DetailCacheSchema holds book detail records keyed by platform and URL.
const DetailCacheSchema = `
CREATE TABLE IF NOT EXISTS detail_cache ` + tableLayout + `;
CREATE INDEX IF NOT EXISTS idx_detail_expires_at ON detail_cache(expires_at);
`

// CoverCacheSchema maps cover URLs to downloaded files.
const CoverCacheSchema = `
CREATE TABLE IF NOT EXISTS cover_cache ` + tableLayout + `;
CREATE INDEX IF NOT EXISTS idx_cover_expires_at ON cover_cache(expires_at);
`

// AllCacheSchemas contains every cache table schema.
var AllCacheSchemas = []string{
	SearchCacheSchema,
	DetailCacheSchema,
	CoverCacheSchema,
}

// ValidCacheTableNames is the whitelist of table names that may be
// interpolated into queries.
var ValidCacheTableNames = map[string]bool{
	SearchTable: true,
	DetailTable: true,
	CoverTable:  true,
}

// SourceTables maps the user-facing names accepted by "cache invalidate".
var SourceTables = map[string]string{
	"search": SearchTable,
	"detail": DetailTable,
	"cover":  CoverTable,
}
