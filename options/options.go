// Package options holds the command line and config file settings of glshaderanim.
package options

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/animator"
	"github.com/richinsley/glshaderanim/recorder"
	"github.com/richinsley/glshaderanim/shader"
	"github.com/richinsley/glshaderanim/shutdown"
)

// ErrInvalidOptions is wrapped by every validation failure.
var ErrInvalidOptions = errors.New("invalid options")

const (
	BackendGStreamer = "gst"
	BackendGL        = "gl"
)

// Duration is a time.Duration that reads "100ms" style strings on the command line and
// in TOML files.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Options is the full run configuration. Field tags name the keys of the TOML file.
type Options struct {
	Backend string `toml:"backend"`
	Variant string `toml:"variant"`

	// Animation
	Iterations       int      `toml:"iterations"`
	Interval         Duration `toml:"interval"`
	Step             float64  `toml:"step"`
	Clock            string   `toml:"clock"`
	Remap            string   `toml:"remap"` // empty uses the variant's remap
	MaxWriteFailures int      `toml:"max_write_failures"`
	ShutdownTimeout  Duration `toml:"shutdown_timeout"`

	// Picture
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	Pattern      string  `toml:"pattern"`
	Radius       float64 `toml:"radius"`
	InsideColor  string  `toml:"inside_color"`
	OutsideColor string  `toml:"outside_color"`

	// Recording
	Record     bool   `toml:"record"`
	OutputFile string `toml:"output"`
	FFmpegPath string `toml:"ffmpeg"`
	Codec      string `toml:"codec"`
	FFmpegArgs string `toml:"ffmpeg_args"`
	FPS        int    `toml:"fps"`

	LogLevel   string `toml:"log_level"`
	ConfigFile string `toml:"-"`
}

// Default returns the reference configuration: the orbiting ball over SMPTE bars at
// 800x800 for 50 ticks of 100ms.
func Default() *Options {
	return &Options{
		Backend:         BackendGStreamer,
		Variant:         "orbit",
		Iterations:      50,
		Interval:        Duration(100 * time.Millisecond),
		Step:            0.1,
		Clock:           "ticks",
		ShutdownTimeout: Duration(shutdown.DefaultTimeout),
		Width:           800,
		Height:          800,
		Pattern:         "smpte",
		Radius:          0.1,
		InsideColor:     "white",
		OutsideColor:    "rgba(51,51,51,1)",
		OutputFile:      "output.mp4",
		Codec:           "h264",
		FPS:             30,
		LogLevel:        "info",
	}
}

// Parse reads args (without the program name). Values come from Default, then the file
// named by -config, then any flag given explicitly on the command line.
func Parse(name string, args []string) (*Options, error) {
	opts := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opts.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrInvalidOptions, fs.Args())
	}

	if opts.ConfigFile != "" {
		path, err := homedir.Expand(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("%w: config path: %v", ErrInvalidOptions, err)
		}
		opts.ConfigFile = path

		explicit := map[string]string{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

		if err := opts.LoadFile(opts.ConfigFile); err != nil {
			return nil, err
		}
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("reapplying -%s: %w", name, err)
			}
		}
	}

	if err := opts.expandPaths(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// expandPaths resolves a leading ~ in file paths.
func (o *Options) expandPaths() error {
	for _, p := range []*string{&o.OutputFile, &o.FFmpegPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		*p = expanded
	}
	return nil
}

func (o *Options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", "", "TOML file with option values (flags override it)")
	fs.StringVar(&o.Backend, "backend", o.Backend, "Pipeline backend: gst or gl")
	fs.StringVar(&o.Variant, "variant", o.Variant, "Animation variant: orbit, orbit-raw or center")

	fs.IntVar(&o.Iterations, "iterations", o.Iterations, "Number of animation ticks")
	fs.Var(&o.Interval, "interval", "Delay between ticks")
	fs.Float64Var(&o.Step, "step", o.Step, "Animation time advanced per tick with the ticks clock")
	fs.StringVar(&o.Clock, "clock", o.Clock, "Animation clock: ticks or wall")
	fs.StringVar(&o.Remap, "remap", o.Remap, "Position remap: unit or none (default from variant)")
	fs.IntVar(&o.MaxWriteFailures, "max-write-failures", o.MaxWriteFailures, "Abort after this many failed ticks (0 = never)")
	fs.Var(&o.ShutdownTimeout, "shutdown-timeout", "How long to wait for end-of-stream")

	fs.IntVar(&o.Width, "width", o.Width, "Width of the output")
	fs.IntVar(&o.Height, "height", o.Height, "Height of the output")
	fs.StringVar(&o.Pattern, "pattern", o.Pattern, "videotestsrc pattern")
	fs.Float64Var(&o.Radius, "radius", o.Radius, "Ball radius in texture coordinates")
	fs.StringVar(&o.InsideColor, "inside-color", o.InsideColor, "CSS color inside the ball, or 'video'")
	fs.StringVar(&o.OutsideColor, "outside-color", o.OutsideColor, "CSS color outside the ball, or 'video'")

	fs.BoolVar(&o.Record, "record", o.Record, "Record to a file instead of opening a window")
	fs.StringVar(&o.OutputFile, "output", o.OutputFile, "Output file name for recording")
	fs.StringVar(&o.FFmpegPath, "ffmpeg", o.FFmpegPath, "Path to ffmpeg executable")
	fs.StringVar(&o.Codec, "codec", o.Codec, "Video codec for recording: h264, hevc or an ffmpeg encoder")
	fs.StringVar(&o.FFmpegArgs, "ffmpeg-args", o.FFmpegArgs, "Extra ffmpeg output options, e.g. \"-crf 18 -preset slow\"")
	fs.IntVar(&o.FPS, "fps", o.FPS, "Frames per second for recording")

	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error")
}

// LoadFile overlays the values of a TOML file. Unknown keys are an error.
func (o *Options) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(o); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s: %s", ErrInvalidOptions, path, strict.String())
		}
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges and names before anything is built.
func (o *Options) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidOptions}, args...)...))
	}

	if o.Backend != BackendGStreamer && o.Backend != BackendGL {
		bad("backend %q (want gst or gl)", o.Backend)
	}
	if _, err := animator.LookupVariant(o.Variant); err != nil {
		bad("%v", err)
	}
	if o.Iterations < 0 {
		bad("iterations must be >= 0, got %d", o.Iterations)
	}
	if o.Interval < 0 {
		bad("interval must be >= 0, got %v", o.Interval)
	}
	if o.MaxWriteFailures < 0 {
		bad("max-write-failures must be >= 0, got %d", o.MaxWriteFailures)
	}
	if o.ShutdownTimeout < 0 {
		bad("shutdown-timeout must be >= 0, got %v", o.ShutdownTimeout)
	}
	if _, err := animator.ParseClock(o.Clock); err != nil {
		bad("%v", err)
	}
	if o.Remap != "" {
		if _, err := animator.LookupRemap(o.Remap); err != nil {
			bad("%v", err)
		}
	}
	if o.Width <= 0 || o.Height <= 0 {
		bad("resolution must be positive, got %dx%d", o.Width, o.Height)
	}
	if o.Pattern == "" {
		bad("pattern is empty")
	}
	if _, err := o.BallParams(); err != nil {
		bad("%v", err)
	}
	if o.Record {
		if o.OutputFile == "" {
			bad("recording needs an output file")
		}
		if o.FPS <= 0 {
			bad("fps must be positive, got %d", o.FPS)
		}
		if o.Backend != BackendGStreamer {
			bad("recording is only supported by the gst backend")
		}
		if _, err := recorder.ParseExtraArgs(o.FFmpegArgs); err != nil {
			bad("%v", err)
		}
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		bad("%v", err)
	}
	return errors.Join(errs...)
}

// AnimatorConfig resolves the variant, remap and clock names into an animator.Config.
func (o *Options) AnimatorConfig() (animator.Config, error) {
	v, err := animator.LookupVariant(o.Variant)
	if err != nil {
		return animator.Config{}, err
	}
	remapName := v.Remap
	if o.Remap != "" {
		remapName = o.Remap
	}
	remap, err := animator.LookupRemap(remapName)
	if err != nil {
		return animator.Config{}, err
	}
	clock, err := animator.ParseClock(o.Clock)
	if err != nil {
		return animator.Config{}, err
	}

	cfg := animator.DefaultConfig()
	cfg.Iterations = o.Iterations
	cfg.Interval = time.Duration(o.Interval)
	cfg.Step = o.Step
	cfg.Clock = clock
	cfg.Position = v.Position
	cfg.Remap = remap
	cfg.MaxWriteFailures = o.MaxWriteFailures
	return cfg, nil
}

// BallParams parses the ball radius and colors.
func (o *Options) BallParams() (shader.BallParams, error) {
	p := shader.BallParams{Radius: o.Radius}
	if o.Radius <= 0 || o.Radius > 1 {
		return p, fmt.Errorf("radius must be in (0, 1], got %v", o.Radius)
	}
	var err error
	if p.Inside, err = shader.ParseColor(o.InsideColor); err != nil {
		return p, fmt.Errorf("inside-color: %w", err)
	}
	if p.Outside, err = shader.ParseColor(o.OutsideColor); err != nil {
		return p, fmt.Errorf("outside-color: %w", err)
	}
	return p, nil
}

// Level returns the parsed log level, falling back to Info.
func (o *Options) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
