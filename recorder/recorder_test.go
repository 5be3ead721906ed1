package recorder

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func testOptions() Options {
	return Options{Width: 4, Height: 2, FPS: 30, OutputFile: "out.mp4"}
}

// sinkRunner stands in for ffmpeg and counts the bytes it receives.
type sinkRunner struct {
	received chan int
	in, out  ffmpeg.KwArgs
	err      error
}

func newSinkRunner() *sinkRunner {
	return &sinkRunner{received: make(chan int, 1)}
}

func (s *sinkRunner) run(r io.Reader, o Options, in, out ffmpeg.KwArgs) error {
	s.in, s.out = in, out
	n, _ := io.Copy(io.Discard, r)
	s.received <- int(n)
	return s.err
}

func TestRecorderWritesFrames(t *testing.T) {
	sink := newSinkRunner()
	rec, err := start(testOptions(), sink.run)
	require.NoError(t, err)

	frame := make([]byte, 4*2*4)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.WriteFrame(frame))
	}
	require.NoError(t, rec.Close())

	assert.Equal(t, 3*len(frame), <-sink.received)
	assert.Equal(t, 3, rec.Frames())
	assert.Equal(t, "4x2", sink.in["s"])
	assert.Equal(t, "rgba", sink.in["pix_fmt"])

	assert.ErrorIs(t, rec.WriteFrame(frame), ErrClosed)
	assert.NoError(t, rec.Close(), "second close is a no-op")
}

func TestRecorderRejectsWrongFrameSize(t *testing.T) {
	sink := newSinkRunner()
	rec, err := start(testOptions(), sink.run)
	require.NoError(t, err)

	assert.ErrorIs(t, rec.WriteFrame(make([]byte, 10)), ErrFrameSize)
	require.NoError(t, rec.Close())
	assert.Zero(t, rec.Frames())
}

func TestRecorderReportsFFmpegFailure(t *testing.T) {
	sink := newSinkRunner()
	sink.err = errors.New("exit status 1")
	rec, err := start(testOptions(), sink.run)
	require.NoError(t, err)

	err = rec.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestRecorderWriteAfterFFmpegExit(t *testing.T) {
	exited := make(chan struct{})
	run := func(r io.Reader, o Options, in, out ffmpeg.KwArgs) error {
		defer close(exited)
		return errors.New("crashed")
	}
	rec, err := start(testOptions(), run)
	require.NoError(t, err)
	<-exited

	// the pipe is closed right after the runner returns
	assert.Error(t, rec.WriteFrame(make([]byte, 32)))
	assert.Error(t, rec.Close())
}

func TestStartValidates(t *testing.T) {
	o := testOptions()
	o.FPS = 0
	_, err := start(o, newSinkRunner().run)
	assert.Error(t, err)

	o = testOptions()
	o.OutputFile = ""
	_, err = start(o, newSinkRunner().run)
	assert.Error(t, err)
}

func TestArgsCodecs(t *testing.T) {
	o := testOptions()
	_, out := Args(o)
	assert.Equal(t, "libx264", out["c:v"])
	assert.Equal(t, "yuv420p", out["pix_fmt"])

	o.Codec = "hevc"
	_, out = Args(o)
	assert.Equal(t, "libx265", out["c:v"])
	assert.Equal(t, "hvc1", out["tag:v"])

	o.Codec = "hevc"
	o.OutputFile = "out.mkv"
	_, out = Args(o)
	assert.NotContains(t, out, "tag:v")

	o.Codec = "libvpx-vp9"
	_, out = Args(o)
	assert.Equal(t, "libvpx-vp9", out["c:v"])
}

func TestParseExtraArgs(t *testing.T) {
	args, err := ParseExtraArgs(`-crf 18 -preset "very slow" -an -itsoffset -1`)
	require.NoError(t, err)
	assert.Equal(t, ffmpeg.KwArgs{"crf": "18", "preset": "very slow", "an": "", "itsoffset": "-1"}, args)

	args, err = ParseExtraArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseExtraArgs("crf 18")
	assert.ErrorIs(t, err, ErrExtraArgs)
	_, err = ParseExtraArgs(`-metadata "title`)
	assert.ErrorIs(t, err, ErrExtraArgs)
}

func TestExtraArgsOverrideGenerated(t *testing.T) {
	sink := newSinkRunner()
	o := testOptions()
	o.ExtraArgs = "-c:v libx265 -crf 20"
	rec, err := start(o, sink.run)
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	<-sink.received

	assert.Equal(t, "libx265", sink.out["c:v"])
	assert.Equal(t, "20", sink.out["crf"])
	assert.Equal(t, "yuv420p", sink.out["pix_fmt"])
}
