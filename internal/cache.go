package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped when the on-disk catalog layout changes
const CacheVersion = "1.0"

// CacheManager keeps the last snapshot list fetched from each service so
// the history can still be shown while the service is unreachable
type CacheManager struct {
	cacheDir string
}

// CacheMetadata describes where a cached catalog came from
type CacheMetadata struct {
	Source       string    `yaml:"source"`
	CacheVersion string    `yaml:"cache_version"`
	FetchedAt    time.Time `yaml:"fetched_at"`
}

// CachedCatalog is the YAML document stored per service
type CachedCatalog struct {
	Snapshots []SnapshotRecord `yaml:"snapshots"`
	Metadata  CacheMetadata    `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// DefaultCacheDir returns ~/.smile-viewer/cache
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".smile-viewer", "cache"), nil
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCatalogPath returns the cache file for source. Each service gets its
// own file named after its token.
func (cm *CacheManager) GetCatalogPath(source string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("smiles_%s.yaml", sourceKey(source)))
}

// SaveCatalog replaces the cached list for source
func (cm *CacheManager) SaveCatalog(source string, records []SnapshotRecord, fetchedAt time.Time) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	catalog := CachedCatalog{
		Snapshots: records,
		Metadata: CacheMetadata{
			Source:       source,
			CacheVersion: CacheVersion,
			FetchedAt:    fetchedAt,
		},
	}
	data, err := yaml.Marshal(&catalog)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	return os.WriteFile(cm.GetCatalogPath(source), data, 0644)
}

// LoadCatalog returns the cached list for source. A missing cache, a file
// from another cache version or one recorded for a different source all
// report ok=false.
func (cm *CacheManager) LoadCatalog(source string) (*CachedCatalog, bool, error) {
	data, err := os.ReadFile(cm.GetCatalogPath(source))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var catalog CachedCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if catalog.Metadata.CacheVersion != CacheVersion || catalog.Metadata.Source != source {
		return nil, false, nil
	}
	if catalog.Snapshots == nil {
		catalog.Snapshots = []SnapshotRecord{}
	}

	return &catalog, true, nil
}

// ClearCache removes every cached catalog
func (cm *CacheManager) ClearCache() error {
	matches, err := filepath.Glob(filepath.Join(cm.cacheDir, "smiles_*.yaml"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// sourceKey turns a base URL into a file-name-safe key
func sourceKey(source string) string {
	key := make([]byte, 0, len(source))
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			key = append(key, c)
		default:
			key = append(key, '_')
		}
	}
	return string(key)
}
