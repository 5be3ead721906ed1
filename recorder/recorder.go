// Package recorder encodes raw RGBA frames to a video file with ffmpeg.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	// ErrFrameSize is returned for a frame whose length is not width*height*4.
	ErrFrameSize = errors.New("frame size does not match the recording resolution")

	// ErrClosed is returned by WriteFrame after Close.
	ErrClosed = errors.New("recorder is closed")

	// ErrExtraArgs is returned for extra ffmpeg arguments that are not "-option [value]"
	// pairs.
	ErrExtraArgs = errors.New("invalid extra ffmpeg arguments")
)

const bytesPerPixel = 4

// Options describes the output file.
type Options struct {
	Width      int
	Height     int
	FPS        int
	OutputFile string
	FFmpegPath string
	// Codec is h264, hevc or any ffmpeg encoder name.
	Codec string
	// ExtraArgs are output options in shell syntax, e.g. "-crf 18 -preset slow". They
	// override the generated ones.
	ExtraArgs string
}

// runner starts ffmpeg reading rawvideo from r and blocks until it exits.
type runner func(r io.Reader, o Options, inputArgs, outputArgs ffmpeg.KwArgs) error

func runFFmpeg(r io.Reader, o Options, inputArgs, outputArgs ffmpeg.KwArgs) error {
	cmd := ffmpeg.Input("pipe:", inputArgs).
		Output(o.OutputFile, outputArgs).
		OverWriteOutput().WithInput(r).ErrorToStdOut()

	if o.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(o.FFmpegPath)
	}
	return cmd.Run()
}

// Recorder feeds frames to a running ffmpeg process through a pipe. WriteFrame may be called
// from any goroutine, one at a time.
type Recorder struct {
	opts      Options
	frameSize int
	pw        *io.PipeWriter
	errc      chan error
	log       *logrus.Entry

	mu      sync.Mutex
	frames  int
	closed  bool
	exitErr error
}

// New starts ffmpeg for o.
func New(o Options) (*Recorder, error) {
	return start(o, runFFmpeg)
}

func start(o Options, run runner) (*Recorder, error) {
	if o.Width <= 0 || o.Height <= 0 || o.FPS <= 0 {
		return nil, fmt.Errorf("invalid recording format %dx%d@%d", o.Width, o.Height, o.FPS)
	}
	if o.OutputFile == "" {
		return nil, errors.New("no output file")
	}

	inputArgs, outputArgs := Args(o)
	extra, err := ParseExtraArgs(o.ExtraArgs)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		outputArgs[k] = v
	}

	pr, pw := io.Pipe()
	r := &Recorder{
		opts:      o,
		frameSize: o.Width * o.Height * bytesPerPixel,
		pw:        pw,
		errc:      make(chan error, 1),
		log: logrus.WithFields(logrus.Fields{
			"component": "recorder",
			"output":    o.OutputFile,
		}),
	}

	r.log.WithFields(logrus.Fields{
		"size": fmt.Sprintf("%dx%d", o.Width, o.Height),
		"fps":  o.FPS,
		"c:v":  outputArgs["c:v"],
	}).Info("Starting ffmpeg")

	go func() {
		err := run(pr, o, inputArgs, outputArgs)
		// unblock writers once ffmpeg is gone
		if err != nil {
			pr.CloseWithError(fmt.Errorf("ffmpeg exited: %w", err))
		} else {
			pr.CloseWithError(io.ErrClosedPipe)
		}
		r.errc <- err
	}()
	return r, nil
}

// Args builds the ffmpeg input and output arguments for rawvideo RGBA frames.
func Args(o Options) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", o.Width, o.Height),
		"framerate": o.FPS,
	}

	outputArgs = ffmpeg.KwArgs{
		"pix_fmt": "yuv420p",
	}
	switch strings.ToLower(o.Codec) {
	case "", "h264":
		outputArgs["c:v"] = "libx264"
	case "hevc", "h265":
		outputArgs["c:v"] = "libx265"
		if strings.EqualFold(filepath.Ext(o.OutputFile), ".mp4") {
			outputArgs["tag:v"] = "hvc1"
		}
	default:
		outputArgs["c:v"] = o.Codec
	}
	return
}

// ParseExtraArgs splits s like a shell would and pairs every "-option" with the word after
// it, unless that word is another option.
func ParseExtraArgs(s string) (ffmpeg.KwArgs, error) {
	words, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraArgs, err)
	}
	args := ffmpeg.KwArgs{}
	for i := 0; i < len(words); i++ {
		if !isOption(words[i]) {
			return nil, fmt.Errorf("%w: expected an option, got %q", ErrExtraArgs, words[i])
		}
		key := words[i][1:]
		if i+1 < len(words) && !isOption(words[i+1]) {
			args[key] = words[i+1]
			i++
			continue
		}
		args[key] = ""
	}
	return args, nil
}

// negative numbers are values, not options
func isOption(w string) bool {
	return len(w) > 1 && w[0] == '-' && (w[1] < '0' || w[1] > '9')
}

// WriteFrame sends one RGBA frame to ffmpeg.
func (r *Recorder) WriteFrame(pixels []byte) error {
	if len(pixels) != r.frameSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pixels), r.frameSize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, err := r.pw.Write(pixels); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", r.frames, err)
	}
	r.frames++
	return nil
}

// Frames returns how many frames were written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close ends the input stream and waits for ffmpeg to finish the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.exitErr
	}
	r.closed = true
	r.pw.Close()

	if err := <-r.errc; err != nil {
		r.exitErr = fmt.Errorf("ffmpeg failed: %w", err)
	}
	r.log.WithField("frames", r.frames).Info("Recording finished")
	return r.exitErr
}
