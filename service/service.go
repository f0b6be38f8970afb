package service

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/pyramid"
	"github.com/janelia-flyem/pixels/registry"
	"github.com/janelia-flyem/pixels/storage/deltavision"
	"github.com/janelia-flyem/pixels/storage/flatfile"
	"github.com/janelia-flyem/pixels/storage/paths"
	"github.com/janelia-flyem/pixels/storage/planecache"
)

// Service opens backing stores by pixel set identifier.  A Service is safe for
// concurrent use; the stores it returns are not and should be used by one
// goroutine each.
type Service struct {
	config   Config
	paths    *paths.Service
	registry *registry.Registry
	backoff  pyramid.BackOff
	cache    *planecache.Cache
}

// Option modifies a Service as it is constructed.
type Option func(*Service)

// WithBackOff uses the given backoff instead of calibrating one from the config.
func WithBackOff(b pyramid.BackOff) Option {
	return func(s *Service) { s.backoff = b }
}

// New opens the registry and calibrates the backoff strategy given a configuration.
func New(config Config, opts ...Option) (*Service, error) {
	config.setDefaults()
	if config.Store.Root == "" {
		return nil, fmt.Errorf("no store root given")
	}
	config.Logging.SetLogger()

	s := &Service{
		config: config,
		paths:  paths.New(config.Store.Root),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backoff == nil {
		b, err := pyramid.NewTimeBackOff(config.Backoff)
		if err != nil {
			return nil, err
		}
		s.backoff = b
	}
	if config.Cache.PlanesMB > 0 {
		s.cache = planecache.New(config.Cache.PlanesMB * dvid.Mega)
	}
	reg, err := registry.Open(config.Registry.Path, config.Store.ReadOnly)
	if err != nil {
		return nil, err
	}
	s.registry = reg
	dvid.Infof("Pixels service @ %s (read only %t)\n", config.Store.Root, config.Store.ReadOnly)
	return s, nil
}

// Close closes the registry.
func (s *Service) Close() error {
	return s.registry.Close()
}

func (s *Service) String() string {
	return "pixels service @ " + s.config.Store.Root
}

// Registry returns the pixel set registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Paths returns the sharded path layout.
func (s *Service) Paths() *paths.Service { return s.paths }

// BackOff returns the pyramid backoff strategy.
func (s *Service) BackOff() pyramid.BackOff { return s.backoff }

// Cache returns the plane cache or nil if none is configured.
func (s *Service) Cache() *planecache.Cache { return s.cache }

func (s *Service) flatfileOptions(writable bool) flatfile.Options {
	return flatfile.Options{
		PermitModification: writable,
		TileWidth:          s.config.Tiles.Width,
		TileHeight:         s.config.Tiles.Height,
	}
}

// Create makes and registers a new canonical pixel file for id in which every
// plane is unacquired.
func (s *Service) Create(id uint64, grid dvid.Grid) (*flatfile.Buffer, error) {
	if s.config.Store.ReadOnly {
		return nil, fmt.Errorf("can't create pixels %d: %w", id, dvid.ErrNotWritable)
	}
	if _, err := s.registry.Get(id); err == nil {
		return nil, fmt.Errorf("pixels %d is already registered", id)
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, err
	}
	path, err := s.paths.PixelsPath(id)
	if err != nil {
		return nil, err
	}
	buf, err := flatfile.Create(id, path, grid, s.flatfileOptions(true))
	if err != nil {
		return nil, err
	}
	if err := s.registry.Put(&registry.Record{ID: id, Grid: grid}); err != nil {
		buf.Close()
		return nil, err
	}
	return buf, nil
}

// Open returns the store for id.  Writable stores are canonical flat files opened
// with permission to modify; use pixels.Writable to reach their setters.  When a
// plane cache is configured, their setters drop the cached planes they overwrite.
// Vendor files can't be opened writable.  Read-only stores never expose setters,
// so pixels.Writable returns dvid.ErrUnsupported for them, and they are served
// through the plane cache if one is configured.
func (s *Service) Open(id uint64, writable bool) (pixels.PixelBuffer, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if writable && s.config.Store.ReadOnly {
		return nil, fmt.Errorf("can't open pixels %d for writing: %w", id, dvid.ErrNotWritable)
	}

	var buf pixels.PixelBuffer
	if rec.VendorPath != "" {
		if writable {
			return nil, fmt.Errorf("vendor pixels %d: %w", id, dvid.ErrUnsupported)
		}
		dv, err := deltavision.Open(id, rec.VendorPath)
		if err != nil {
			return nil, err
		}
		dv.SetTileSize(s.config.Tiles.Width, s.config.Tiles.Height)
		buf = dv
	} else {
		path, err := s.paths.PixelsPath(id)
		if err != nil {
			return nil, err
		}
		ff, err := flatfile.Open(id, path, rec.Grid, s.flatfileOptions(writable))
		if err != nil {
			return nil, err
		}
		if writable {
			if s.cache != nil {
				return s.cache.WrapWritable(ff), nil
			}
			return ff, nil
		}
		buf = ff
	}
	if s.cache != nil {
		return s.cache.Wrap(buf), nil
	}
	return pixels.ReadOnly(buf), nil
}

// OpenLevel returns a read-only store for a resolution level of id, where level 0
// is full resolution.  If the pyramid holding the level hasn't been built, a
// *pyramid.MissingPyramidError is returned with the estimated wait.
func (s *Service) OpenLevel(id uint64, level int) (pixels.PixelBuffer, error) {
	if level == 0 {
		return s.Open(id, false)
	}
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	path, err := s.paths.LevelPath(id, level)
	if err != nil {
		return nil, err
	}
	grid := pyramid.LevelGrid(rec.Grid, level)
	if !paths.Exists(path) {
		return nil, pyramid.Missing(s.backoff, id, grid)
	}
	buf, err := flatfile.Open(id, path, grid, s.flatfileOptions(false))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// RegisterVendorFile registers a vendor file as the backing store for id.  Its
// grid comes from the file header and its digest is computed immediately.
func (s *Service) RegisterVendorFile(id uint64, path string) (*registry.Record, error) {
	if s.config.Store.ReadOnly {
		return nil, fmt.Errorf("can't register pixels %d: %w", id, dvid.ErrNotWritable)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	buf, err := deltavision.Open(id, absPath)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	timedLog := dvid.NewTimeLog()
	digest, err := buf.CalculateMessageDigest()
	if err != nil {
		return nil, err
	}
	rec := &registry.Record{ID: id, Grid: buf.Grid(), VendorPath: absPath, Digest: digest}
	if err := s.registry.Put(rec); err != nil {
		return nil, err
	}
	timedLog.Infof("Registered vendor file %s (%s) as pixels %d", absPath, humanize.Bytes(uint64(buf.TotalSize())), id)
	return s.registry.Get(id)
}

// UpdateDigest recomputes the SHA-1 digest of id and stores it in the registry.
func (s *Service) UpdateDigest(id uint64) ([]byte, error) {
	if s.config.Store.ReadOnly {
		return nil, fmt.Errorf("can't update digest of pixels %d: %w", id, dvid.ErrNotWritable)
	}
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	buf, err := s.Open(id, false)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	timedLog := dvid.NewTimeLog()
	digest, err := buf.CalculateMessageDigest()
	if err != nil {
		return nil, err
	}
	updated := *rec
	updated.Digest = digest
	if err := s.registry.Put(&updated); err != nil {
		return nil, err
	}
	timedLog.Debugf("Computed digest %x of pixels %d", digest, id)
	return digest, nil
}
