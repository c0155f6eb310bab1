package cache

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvCacheDir overrides the cache root location. It is also exported into
// every job's execution environment so scripts can find the cache.
const EnvCacheDir = "STAGEHAND_CACHE_DIR"

// DefaultRoot returns the cache root directory: the EnvCacheDir environment
// variable when set, otherwise a stagehand directory under the user's XDG
// cache home.
func DefaultRoot() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, "stagehand")
}
