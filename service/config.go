package service

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pyramid"
)

type storeConfig struct {
	Root     string
	ReadOnly bool `toml:"readonly"`
}

type tilesConfig struct {
	Width  int
	Height int
}

type cacheConfig struct {
	PlanesMB int `toml:"planes_mb"`
}

type registryConfig struct {
	Path string
}

// Config is the decoded TOML configuration of a Service.
type Config struct {
	Store    storeConfig
	Tiles    tilesConfig
	Backoff  pyramid.Config
	Cache    cacheConfig
	Registry registryConfig
	Logging  dvid.LogConfig
}

// DefaultConfig returns the configuration used for a root with no TOML file.
func DefaultConfig(root string) Config {
	c := Config{Store: storeConfig{Root: root}}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Tiles.Width <= 0 {
		c.Tiles.Width = 256
	}
	if c.Tiles.Height <= 0 {
		c.Tiles.Height = 256
	}
	if c.Backoff.Codec == "" {
		c.Backoff.Codec = pyramid.CodecZstd
	}
	if c.Backoff.Warmup <= 0 {
		c.Backoff.Warmup = pyramid.DefaultWarmup
	}
	if c.Backoff.Iterations <= 0 {
		c.Backoff.Iterations = pyramid.DefaultIterations
	}
	if c.Backoff.TileSize <= 0 {
		c.Backoff.TileSize = pyramid.DefaultTileSize
	}
	if c.Registry.Path == "" && c.Store.Root != "" {
		c.Registry.Path = filepath.Join(c.Store.Root, "Registry")
	}
}

// Some settings in the TOML can be given as relative paths.  This converts them
// in-place to absolute paths relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [store].root
	if c.Store.Root != "" {
		c.Store.Root, err = dvid.ConvertToAbsolute(c.Store.Root, configDir)
		if err != nil {
			return fmt.Errorf("error converting store root to absolute path: %w", err)
		}
	}

	// [registry].path
	if c.Registry.Path != "" {
		c.Registry.Path, err = dvid.ConvertToAbsolute(c.Registry.Path, configDir)
		if err != nil {
			return fmt.Errorf("error converting registry path to absolute path: %w", err)
		}
	}

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = dvid.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path: %w", err)
		}
	}
	return nil
}

// LoadConfig decodes a TOML configuration file.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	var c Config
	md, err := toml.DecodeFile(filename, &c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		dvid.Warningf("Ignoring unknown settings in %s: %v\n", filename, undecoded)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %w", err)
	}
	c.setDefaults()
	if c.Store.Root == "" {
		return nil, fmt.Errorf("[store] root must be set in %s", filename)
	}
	dvid.Infof("Loaded configuration from %s: %+v\n", filename, c)
	return &c, nil
}
