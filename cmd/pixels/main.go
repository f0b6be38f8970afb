// Command-line administration of a pixels store: creating pixel sets, registering
// vendor files, computing digests and finding duplicate pixel sets.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/pyramid"
	"github.com/janelia-flyem/pixels/service"
	"github.com/janelia-flyem/pixels/tiles"
)

var (
	// Display usage if true.
	showHelp = pflag.BoolP("help", "h", false, "Show help message")

	// Run in verbose mode if true.
	runVerbose = pflag.BoolP("verbose", "v", false, "Run in verbose mode")

	// TOML configuration file.
	configFile = pflag.StringP("config", "c", "", "TOML configuration file")

	// Store root used when there is no configuration file.
	storeRoot = pflag.String("root", "", "Root directory of the pixels store")

	// Number of pixel sets digested concurrently.
	numWorkers = pflag.IntP("workers", "w", runtime.NumCPU(), "Number of concurrent digests")
)

const helpMessage = `
pixels administers a store of 5d (X, Y, Z, C, T) pixel sets

Usage: pixels [options] <command>

  -c, --config   =string   TOML configuration file.
      --root     =string   Store root directory if no configuration file is given.
  -w, --workers  =number   Number of pixel sets digested concurrently.
  -v, --verbose  (flag)    Run in verbose mode.
  -h, --help     (flag)    Show help message

Commands:

	create <id> <XxYxZxCxT> <pixel type>
	info <id> ...
	digest <id> ...
	tiles <id> [width=<w>] [height=<h>] [level=<level>]
	register-dv <id> <vendor file>
	dedup

Pixel types are int8, uint8, int16, uint16, int32, uint32, float and double.
`

func main() {
	pflag.Usage = func() { fmt.Print(helpMessage) }
	pflag.Parse()

	if pflag.NArg() >= 1 && strings.ToLower(pflag.Arg(0)) == "help" {
		*showHelp = true
	}
	if *showHelp || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		dvid.SetLogMode(dvid.DebugMode)
	}

	err := DoCommand(dvid.Command(pflag.Args()))
	dvid.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// commands maps each command to whether it can signal a missing pyramid and so
// needs a calibrated backoff.
var commands = map[string]bool{
	"create":      false,
	"info":        false,
	"digest":      false,
	"tiles":       true,
	"register-dv": false,
	"dedup":       false,
}

// openService opens the store.  Without calibrate, backoff estimates use a fixed
// zero cost instead of timing encodes.
func openService(calibrate bool) (*service.Service, error) {
	var opts []service.Option
	if !calibrate {
		opts = append(opts, service.WithBackOff(pyramid.FixedBackOff{}))
	}
	if *configFile != "" {
		config, err := service.LoadConfig(*configFile)
		if err != nil {
			return nil, err
		}
		return service.New(*config, opts...)
	}
	if *storeRoot == "" {
		return nil, fmt.Errorf("either --config or --root must be given")
	}
	return service.New(service.DefaultConfig(*storeRoot), opts...)
}

// DoCommand serves as a switchboard for commands.
func DoCommand(cmd dvid.Command) error {
	calibrate, found := commands[cmd.Name()]
	if !found {
		return fmt.Errorf("unknown command: %q", cmd)
	}
	s, err := openService(calibrate)
	if err != nil {
		return err
	}
	defer s.Close()

	switch cmd.Name() {
	case "create":
		return doCreate(s, cmd)
	case "info":
		return doInfo(s, cmd)
	case "digest":
		return doDigest(s, cmd)
	case "tiles":
		return doTiles(s, cmd)
	case "register-dv":
		return doRegister(s, cmd)
	case "dedup":
		return doDedup(s)
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad pixels id %q: %w", s, dvid.ErrInvalidID)
	}
	return id, nil
}

func doCreate(s *service.Service, cmd dvid.Command) error {
	var idStr, extents, pixelType string
	cmd.CommandArgs(&idStr, &extents, &pixelType)
	if pixelType == "" {
		return fmt.Errorf("usage: create <id> <XxYxZxCxT> <pixel type>")
	}
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	grid, err := dvid.ParseGrid(extents, pixelType)
	if err != nil {
		return err
	}
	buf, err := s.Create(id, grid)
	if err != nil {
		return err
	}
	defer buf.Close()
	fmt.Printf("Created pixels %d (%s, %s) @ %s\n", id, grid, humanize.Bytes(uint64(buf.TotalSize())), buf.Path())
	return nil
}

func doInfo(s *service.Service, cmd dvid.Command) error {
	ids, err := cmd.IDArgs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if ids, err = s.Registry().IDs(); err != nil {
			return err
		}
	}
	for _, id := range ids {
		rec, err := s.Registry().Get(id)
		if err != nil {
			return err
		}
		total := pixels.NewCalculator(rec.Grid).TotalSize()
		fmt.Printf("%s, %s\n", rec, humanize.Bytes(uint64(total)))
	}
	return nil
}

// doDigest computes digests concurrently.  Each digest opens its own store.
func doDigest(s *service.Service, cmd dvid.Command) error {
	ids, err := cmd.IDArgs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("usage: digest <id> ...")
	}
	digests := make([][]byte, len(ids))
	var g errgroup.Group
	g.SetLimit(*numWorkers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			digest, err := s.UpdateDigest(id)
			if err != nil {
				return fmt.Errorf("digest of pixels %d: %w", id, err)
			}
			digests[i] = digest
			return nil
		})
	}
	err = g.Wait()
	for i, id := range ids {
		if digests[i] != nil {
			fmt.Printf("%d %s\n", id, hex.EncodeToString(digests[i]))
		}
	}
	return err
}

func doTiles(s *service.Service, cmd dvid.Command) error {
	var idStr string
	cmd.CommandArgs(&idStr)
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	width, err := cmd.IntParameter("width", 0)
	if err != nil {
		return err
	}
	height, err := cmd.IntParameter("height", 0)
	if err != nil {
		return err
	}
	level, err := cmd.IntParameter("level", 0)
	if err != nil {
		return err
	}
	buf, err := s.OpenLevel(id, level)
	if err != nil {
		return err
	}
	defer buf.Close()

	var total int64
	n, err := pixels.ReadTiles(buf, width, height, func(tile tiles.Tile, data *pixels.PixelData) error {
		var sum float64
		for i := 0; i < data.Len(); i++ {
			sum += data.Value(i)
		}
		total += int64(len(data.Bytes()))
		dvid.Debugf("%s mean %.2f\n", tile, sum/float64(data.Len()))
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Read %d tiles (%s) of pixels %d\n", n, humanize.Bytes(uint64(total)), id)
	return nil
}

func doRegister(s *service.Service, cmd dvid.Command) error {
	var idStr, path string
	cmd.CommandArgs(&idStr, &path)
	if path == "" {
		return fmt.Errorf("usage: register-dv <id> <vendor file>")
	}
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	rec, err := s.RegisterVendorFile(id, path)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s\n", rec)
	return nil
}

func doDedup(s *service.Service) error {
	dups, err := s.Registry().Duplicates()
	if err != nil {
		return err
	}
	if len(dups) == 0 {
		fmt.Println("No duplicate pixel sets.")
		return nil
	}
	for _, d := range dups {
		fmt.Println(d)
	}
	return nil
}
