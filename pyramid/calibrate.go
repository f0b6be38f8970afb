package pyramid

import (
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/janelia-flyem/pixels/dvid"
)

// Codecs a TimeBackOff can be calibrated against.
const (
	CodecZstd   = "zstd"
	CodecSnappy = "snappy"
)

// Config sets how a TimeBackOff is calibrated.  Zero values select defaults.
type Config struct {
	Codec      string `toml:"codec"`
	Warmup     int    `toml:"warmup"`
	Iterations int    `toml:"iterations"`
	TileSize   int    `toml:"tile_size"`
}

const (
	DefaultWarmup     = 10
	DefaultIterations = 100
)

func (c *Config) setDefaults() {
	if c.Codec == "" {
		c.Codec = CodecZstd
	}
	if c.Warmup <= 0 {
		c.Warmup = DefaultWarmup
	}
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.TileSize <= 0 {
		c.TileSize = DefaultTileSize
	}
}

// encoder compresses a tile, appending to dst.
type encoder interface {
	encode(dst, src []byte) []byte
	close() error
}

type zstdEncoder struct{ *zstd.Encoder }

func (e zstdEncoder) encode(dst, src []byte) []byte { return e.EncodeAll(src, dst[:0]) }
func (e zstdEncoder) close() error                  { return e.Close() }

type snappyEncoder struct{}

func (snappyEncoder) encode(dst, src []byte) []byte { return snappy.Encode(dst, src) }
func (snappyEncoder) close() error                  { return nil }

func newEncoder(codec string) (encoder, error) {
	switch codec {
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zstdEncoder{enc}, nil
	case CodecSnappy:
		return snappyEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown calibration codec %q", codec)
	}
}

// referenceTile returns a deterministic tileSize x tileSize 8-bit tile with
// enough structure that encoding isn't trivial.
func referenceTile(tileSize int) []byte {
	tile := make([]byte, tileSize*tileSize)
	for y := 0; y < tileSize; y++ {
		for x := 0; x < tileSize; x++ {
			tile[y*tileSize+x] = byte((x*x + y*3 + (x^y)*7) >> 2)
		}
	}
	return tile
}

// TimeBackOff derives its per-tile cost from timing the encoding of a reference
// tile when it is constructed.  The measurement is never repeated, so it is a
// best-effort estimate for the machine and load at construction time.
type TimeBackOff struct {
	config  Config
	perTile time.Duration
}

// NewTimeBackOff calibrates a TimeBackOff.  The reference tile is encoded
// config.Warmup times without timing, then config.Iterations times to compute
// the average per-tile cost.
func NewTimeBackOff(config Config) (*TimeBackOff, error) {
	config.setDefaults()
	enc, err := newEncoder(config.Codec)
	if err != nil {
		return nil, err
	}
	defer enc.close()

	tile := referenceTile(config.TileSize)
	var dst []byte
	for i := 0; i < config.Warmup; i++ {
		dst = enc.encode(dst, tile)
	}
	start := time.Now()
	for i := 0; i < config.Iterations; i++ {
		dst = enc.encode(dst, tile)
	}
	perTile := time.Since(start) / time.Duration(config.Iterations)
	if perTile <= 0 {
		perTile = time.Nanosecond
	}
	dvid.Infof("Calibrated pyramid backoff with %s over %d iterations: %s per %dx%d tile (%d bytes encoded)\n",
		config.Codec, config.Iterations, perTile, config.TileSize, config.TileSize, len(dst))
	return &TimeBackOff{config: config, perTile: perTile}, nil
}

func (b *TimeBackOff) String() string {
	return fmt.Sprintf("%s backoff, %s per tile", b.config.Codec, b.perTile)
}

func (b *TimeBackOff) ScalingFactor() time.Duration { return b.perTile }

func (b *TimeBackOff) Estimate(grid dvid.Grid) (time.Duration, error) {
	n, err := CountTiles(grid, b.config.TileSize)
	if err != nil {
		return 0, err
	}
	return b.perTile * time.Duration(n), nil
}
