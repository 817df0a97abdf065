// Command wishart classifies a PolSARpro T3, C3 or C2 directory with the
// Wishart clustering classifier and writes the class raster, legend and
// optional plots.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/wishart/internal/config"
	"github.com/banshee-data/wishart/internal/db"
	"github.com/banshee-data/wishart/internal/fsutil"
	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/polsarpro"
	"github.com/banshee-data/wishart/internal/report"
	"github.com/banshee-data/wishart/internal/timeutil"
	"github.com/banshee-data/wishart/internal/version"
	"github.com/banshee-data/wishart/internal/wishart"
)

type options struct {
	In         string
	Out        string
	ConfigPath string
	Classifier string
	Window     int
	DBPath     string
	Plots      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.In, "in", "", "Input PolSARpro directory (T3, C3 or C2)")
	flag.StringVar(&opts.Out, "out", "", "Output directory (default: <in>/wishart)")
	flag.StringVar(&opts.ConfigPath, "config", "", "Classifier config JSON (default: built-in defaults)")
	flag.StringVar(&opts.Classifier, "classifier", "", "Override classifier: freeman-durden, h-alpha or h-alpha-dual")
	flag.IntVar(&opts.Window, "window", 0, "Override multi-look window size (odd, 1 disables)")
	flag.StringVar(&opts.DBPath, "db", "", "Record the run in this SQLite database")
	flag.BoolVar(&opts.Plots, "plots", false, "Also write PNG plots and an HTML legend")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wishart %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	level, err := monitoring.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
		os.Exit(2)
	}
	logger := monitoring.NewConsoleLogger(level)
	defer monitoring.Install(logger)()

	if opts.In == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fsutil.OSFileSystem{}, opts); err != nil {
		logger.Error("wishart", err, map[string]interface{}{"in": opts.In})
		os.Exit(1)
	}
}

// clock times runs; tests may replace it.
var clock timeutil.Clock = timeutil.RealClock{}

func loadConfig(opts options) (*config.WishartConfig, error) {
	cfg := config.EmptyWishartConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadWishartConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.Classifier != "" {
		cfg.Classifier = &opts.Classifier
	}
	if opts.Window != 0 {
		cfg.WindowSize = &opts.Window
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, fsys fsutil.FileSystem, opts options) error {
	start := clock.Now()
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	classifierCfg, err := cfg.ToClassifierConfig()
	if err != nil {
		return err
	}
	if opts.Out == "" {
		opts.Out = filepath.Join(opts.In, "wishart")
	}

	src, err := polsarpro.ReadDir(fsys, opts.In)
	if err != nil {
		return err
	}
	monitoring.Logf("read %dx%d %s%d raster from %s", src.Width(), src.Height(), src.Kind(), src.Order(), opts.In)

	var input polsar.Source = src
	if w := cfg.GetWindowSize(); w > 1 {
		input, err = polsar.Boxcar(ctx, src, w, classifierCfg.TileSize, classifierCfg.Workers)
		if err != nil {
			return err
		}
	}

	classifier, err := wishart.New(classifierCfg)
	if err != nil {
		return err
	}
	res, err := classifier.Classify(ctx, input)
	if err != nil {
		return err
	}

	if err := writeOutputs(fsys, opts, res); err != nil {
		return err
	}

	if opts.DBPath != "" {
		if err := recordRun(opts, cfg, res, clock.Since(start)); err != nil {
			return err
		}
	}
	monitoring.Logf("wrote %d classes to %s in %s", res.NumClasses(), opts.Out, clock.Since(start).Round(time.Millisecond))
	return nil
}

func writeOutputs(fsys fsutil.FileSystem, opts options, res *wishart.Result) error {
	if err := polsarpro.WriteClassRaster(fsys, opts.Out, polsarpro.ClassFile, res.Width, res.Height, res.Classes); err != nil {
		return err
	}

	type output struct {
		name  string
		write func(*bytes.Buffer) error
		plot  bool
	}
	title := fmt.Sprintf("Wishart %s", res.Kind)
	outputs := []output{
		{"legend.json", func(b *bytes.Buffer) error { return report.WriteLegendJSON(b, res) }, false},
		{"wishart_class.png", func(b *bytes.Buffer) error { return report.WriteClassPNG(b, res) }, false},
		{"class_map.png", func(b *bytes.Buffer) error { return report.WriteClassMapPNG(b, res, title) }, true},
		{"class_sizes.png", func(b *bytes.Buffer) error { return report.WriteClassSizesPNG(b, res) }, true},
		{"legend.html", func(b *bytes.Buffer) error { return report.WriteLegendHTML(b, res, title) }, true},
	}
	for _, o := range outputs {
		if o.plot && !opts.Plots {
			continue
		}
		var buf bytes.Buffer
		if err := o.write(&buf); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
		if err := fsys.WriteFile(filepath.Join(opts.Out, o.name), buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.name, err)
		}
	}
	return nil
}

func recordRun(opts options, cfg *config.WishartConfig, res *wishart.Result, elapsed time.Duration) error {
	database, err := db.NewDB(opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open run database: %w", err)
	}
	defer database.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	run := db.NewRunFromResult(res)
	run.SourcePath = opts.In
	run.WindowSize = cfg.GetWindowSize()
	run.ConfigJSON = cfgJSON
	run.DurationMs = elapsed.Milliseconds()

	if err := db.NewRunStore(database).InsertRun(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	monitoring.Logf("recorded run %s in %s", run.RunID, opts.DBPath)
	return nil
}
