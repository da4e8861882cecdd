package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ironsheep/imcol/internal/config"
	"github.com/ironsheep/imcol/internal/imaging"
	"github.com/ironsheep/imcol/internal/logging"
	"github.com/ironsheep/imcol/internal/server"
	"github.com/ironsheep/imcol/pkg/imcol"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("imcol %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage(os.Stdout)
		return
	}

	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "imcol: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "imcol - multi-channel microscopy images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: imcol <command> [flags] channel=path[,path...] ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  info         Print channel sizes and plane counts")
	fmt.Fprintln(w, "  composite    Write an RGB composite PNG (-o out.png)")
	fmt.Fprintln(w, "  surfref      Print SURF-ref descriptors as CSV")
	fmt.Fprintln(w, "  serve        Run the MCP tool server on stdin/stdout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags go before the channel arguments.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  -layout single|stack|multi    How channels are stored (default single)")
	fmt.Fprintln(w, "  -config path                  YAML configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  IMCOL_LOG_LEVEL=debug     Log level (debug, info, warn, error)")
	fmt.Fprintln(w, "  IMCOL_REFERENCE=dna       Reference channel for surfref")
	fmt.Fprintln(w, "  IMCOL_MAX_POINTS=1024     Descriptor limit for surfref")
}

// command holds the flags shared by every subcommand.
type command struct {
	fs         *flag.FlagSet
	layout     string
	configPath string
}

func newCommand(name string) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.StringVar(&c.layout, "layout", "single", "channel storage: single, stack or multi")
	c.fs.StringVar(&c.configPath, "config", "imcol.yaml", "YAML configuration file")
	return c
}

// setup parses args and returns the config, a logger and the image named by
// the positional channel arguments.
func (c *command) setup(args []string) (*config.Config, zerolog.Logger, imcol.PlaneImage, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := logging.Setup(cfg.Log.Level)

	if c.fs.Name() == "serve" {
		return cfg, logger, nil, nil
	}

	layout, err := imcol.ParseLayout(c.layout)
	if err != nil {
		return nil, logger, nil, err
	}
	files, err := parseChannels(c.fs.Args())
	if err != nil {
		return nil, logger, nil, err
	}
	img, err := imcol.Open(layout, files, imcol.WithLogger(logger))
	if err != nil {
		return nil, logger, nil, err
	}
	logger.Debug().Str("layout", string(layout)).Stringer("image", img.(fmt.Stringer)).Msg("image declared")
	return cfg, logger, img, nil
}

// parseChannels turns "name=path[,path...]" arguments into a channel mapping.
func parseChannels(args []string) (map[string][]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no channels given, want name=path[,path...]")
	}
	files := make(map[string][]string, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q after channel arguments, flags must come first", arg)
		}
		name, list, ok := strings.Cut(arg, "=")
		if !ok || name == "" || list == "" {
			return nil, fmt.Errorf("invalid channel %q, want name=path[,path...]", arg)
		}
		if _, dup := files[name]; dup {
			return nil, fmt.Errorf("channel %q given twice", name)
		}
		paths := strings.Split(list, ",")
		for _, p := range paths {
			if p == "" {
				return nil, fmt.Errorf("empty path in channel %q", name)
			}
		}
		files[name] = paths
	}
	return files, nil
}

func run(name string, args []string, stdout io.Writer) error {
	switch name {
	case "info":
		return runInfo(args, stdout)
	case "composite":
		return runComposite(args)
	case "surfref":
		return runSurfRef(args, stdout)
	case "serve":
		return runServe(args)
	default:
		return fmt.Errorf("unknown command %q (see imcol --help)", name)
	}
}

func runInfo(args []string, stdout io.Writer) error {
	c := newCommand("info")
	_, _, img, err := c.setup(args)
	if err != nil {
		return err
	}

	return imcol.Scoped(img, func(img imcol.PlaneImage) error {
		infos, err := imcol.Describe(img)
		if err != nil {
			return err
		}
		w := csv.NewWriter(stdout)
		w.Comma = '\t'
		if err := w.Write([]string{"channel", "width", "height", "planes", "files"}); err != nil {
			return err
		}
		for _, info := range infos {
			err := w.Write([]string{
				info.Name,
				strconv.Itoa(info.Width),
				strconv.Itoa(info.Height),
				strconv.Itoa(info.Planes),
				strings.Join(info.Files, ","),
			})
			if err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func runComposite(args []string) error {
	c := newCommand("composite")
	output := c.fs.String("o", "composite.png", "output PNG path")
	plane := c.fs.String("plane", "", "plane: central, max or an index (default from config)")
	channels := c.fs.String("channels", "", "red,green,blue channel names (default from config)")
	scale := c.fs.Float64("scale", 0, "preview scale (default from config)")

	cfg, logger, img, err := c.setup(args)
	if err != nil {
		return err
	}

	if *plane != "" {
		cfg.Composite.Plane = *plane
	}
	sel, err := cfg.PlaneSelector()
	if err != nil {
		return err
	}
	if *scale == 0 {
		*scale = cfg.Preview.Scale
	}
	display := imaging.FileDisplay{Path: *output, Scale: *scale}

	return imcol.Scoped(img, func(img imcol.PlaneImage) error {
		var err error
		if *channels != "" {
			rgb := strings.Split(*channels, ",")
			if len(rgb) > 3 {
				return fmt.Errorf("at most 3 channels, got %d", len(rgb))
			}
			var names [3]string
			copy(names[:], rgb)
			err = showComposite(img, display, names, sel)
		} else {
			err = showConfigured(cfg, img, display, sel)
		}
		if err != nil {
			return err
		}
		logger.Info().Str("output", *output).Str("plane", sel.String()).Msg("composite written")
		return nil
	})
}

func showComposite(img imcol.PlaneImage, d imcol.Display, channels [3]string, sel imcol.PlaneSelector) error {
	rgb, err := imcol.Composite(img, channels, sel)
	if err != nil {
		return err
	}
	return d.Display(rgb)
}

func showConfigured(cfg *config.Config, img imcol.PlaneImage, d imcol.Display, sel imcol.PlaneSelector) error {
	layers, err := cfg.ChannelColors()
	if err != nil {
		return err
	}
	if layers == nil {
		return showComposite(img, d, cfg.CompositeChannels(), sel)
	}
	rgb, err := imcol.Blend(img, layers, sel)
	if err != nil {
		return err
	}
	return d.Display(rgb)
}

func runSurfRef(args []string, stdout io.Writer) error {
	c := newCommand("surfref")
	channel := c.fs.String("channel", imcol.ProteinChannel, "channel to describe")
	ref := c.fs.String("ref", "", "reference channel; \"none\" disables it (default from config)")
	plane := c.fs.String("plane", "", "plane: central, max or an index (default from config)")
	maxPoints := c.fs.Int("max-points", 0, "maximum number of descriptors (default from config)")

	cfg, logger, img, err := c.setup(args)
	if err != nil {
		return err
	}

	if *plane != "" {
		cfg.Composite.Plane = *plane
	}
	sel, err := cfg.PlaneSelector()
	if err != nil {
		return err
	}
	opts := cfg.SurfOptions()
	if *maxPoints > 0 {
		opts.MaxPoints = *maxPoints
	}
	reference := cfg.Features.Reference
	switch *ref {
	case "":
	case "none":
		reference = ""
	default:
		reference = *ref
	}

	return imcol.Scoped(img, func(img imcol.PlaneImage) error {
		m, err := imcol.SurfRef(img, *channel, reference, sel, opts)
		if err != nil {
			return err
		}
		rows, cols := m.Dims()
		logger.Info().Str("channel", *channel).Str("ref", reference).Int("rows", rows).Int("cols", cols).Msg("descriptors computed")

		w := csv.NewWriter(stdout)
		record := make([]string, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func runServe(args []string) error {
	c := newCommand("serve")
	cfg, logger, _, err := c.setup(args)
	if err != nil {
		return err
	}

	logger.Debug().Str("version", Version).Str("built", BuildTime).Str("commit", GitCommit).Msg("imcol MCP server")

	srv := server.New(cfg, logger)
	srv.Version = Version
	return srv.Run()
}
