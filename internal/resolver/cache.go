package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const diskCacheFile = "objects.yaml"

// DiskCache keeps earlier remote lookups in a YAML file so restarts do not
// hit the network again.
type DiskCache struct {
	mu   sync.Mutex
	path string
}

// NewDiskCache creates a DiskCache that stores objects.yaml in dir. An empty
// dir disables persistence.
func NewDiskCache(dir string) *DiskCache {
	if dir == "" {
		return &DiskCache{}
	}
	return &DiskCache{path: filepath.Join(dir, diskCacheFile)}
}

// Path returns the cache file path, or "" when persistence is disabled.
func (c *DiskCache) Path() string {
	return c.path
}

// Load reads all cached objects keyed by name. A missing file yields an
// empty map.
func (c *DiskCache) Load() (map[string]ObjectInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *DiskCache) load() (map[string]ObjectInfo, error) {
	out := make(map[string]ObjectInfo)
	if c.path == "" {
		return out, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("reading object cache: %w", err)
	}

	var objects []ObjectInfo
	if err := yaml.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("decoding object cache: %w", err)
	}
	for _, o := range objects {
		out[o.Name] = o
	}
	return out, nil
}

// Add merges info into the file. The write goes to a temp file that is
// renamed over the old one.
func (c *DiskCache) Add(info ObjectInfo) error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	objects, err := c.load()
	if err != nil {
		return err
	}
	objects[info.Name] = info

	list := make([]ObjectInfo, 0, len(objects))
	for _, o := range objects {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding object cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".objects-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing object cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing object cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing object cache: %w", err)
	}
	return nil
}
