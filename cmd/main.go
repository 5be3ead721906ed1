package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/animator"
	"github.com/richinsley/glshaderanim/glpipeline"
	"github.com/richinsley/glshaderanim/gstpipeline"
	"github.com/richinsley/glshaderanim/options"
	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/recorder"
	"github.com/richinsley/glshaderanim/session"
	"github.com/richinsley/glshaderanim/shader"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	opts, err := options.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(opts.Level())
	log := logrus.WithField("component", "main")

	ball, err := opts.BallParams()
	if err != nil {
		log.WithError(err).Fatal("Invalid ball parameters")
	}
	fragment := shader.BallFragmentShader(ball)
	if err := shader.RequireUniforms(fragment, "float",
		shader.UniformCX, shader.UniformCY, shader.UniformWidth, shader.UniformHeight, shader.UniformTime); err != nil {
		log.WithError(err).Fatal("Shader is missing required uniforms")
	}

	animCfg, err := opts.AnimatorConfig()
	if err != nil {
		log.WithError(err).Fatal("Invalid animation options")
	}
	cfg := session.Config{
		Animator:        animCfg,
		ShutdownTimeout: time.Duration(opts.ShutdownTimeout),
		OnFrame: func(f animator.Frame, x, y float64, pushed bool) {
			if !pushed {
				log.WithField("tick", f.Iteration).Debug("Shader not ready yet")
			}
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"backend":    opts.Backend,
		"variant":    opts.Variant,
		"iterations": opts.Iterations,
		"interval":   opts.Interval,
	}).Info("Starting")

	var stats animator.Stats
	switch opts.Backend {
	case options.BackendGL:
		stats, err = runGL(ctx, opts, fragment, cfg)
	default:
		stats, err = runGStreamer(ctx, opts, fragment, cfg)
	}

	fields := logrus.Fields{
		"ticks":          stats.Ticks,
		"pushed":         stats.Pushed,
		"skipped":        stats.Skipped,
		"write_failures": stats.WriteFailures,
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Run failed")
		os.Exit(1)
	}
	log.WithFields(fields).Info("Done")
}

func runGStreamer(ctx context.Context, opts *options.Options, fragment string, cfg session.Config) (animator.Stats, error) {
	pcfg := gstpipeline.Config{
		Width:           opts.Width,
		Height:          opts.Height,
		Pattern:         opts.Pattern,
		Fragment:        fragment,
		InitialUniforms: shader.InitialUniforms(),
	}

	var rec *recorder.Recorder
	if opts.Record {
		var err error
		rec, err = recorder.New(recorder.Options{
			Width:      opts.Width,
			Height:     opts.Height,
			FPS:        opts.FPS,
			OutputFile: opts.OutputFile,
			FFmpegPath: opts.FFmpegPath,
			Codec:      opts.Codec,
			ExtraArgs:  opts.FFmpegArgs,
		})
		if err != nil {
			return animator.Stats{}, fmt.Errorf("failed to start recorder: %w", err)
		}
		pcfg.Frames = rec
		pcfg.FPS = opts.FPS
	}

	p, err := gstpipeline.New(pcfg)
	if err != nil {
		if rec != nil {
			err = errors.Join(err, rec.Close())
		}
		return animator.Stats{}, err
	}
	cfg.Animator.Stage = gstpipeline.ShaderStage

	stats, err := session.Run(ctx, p, cfg)
	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		} else {
			logrus.WithField("output", opts.OutputFile).Info("Recording written")
		}
	}
	return stats, err
}

// runGL keeps the render loop on the main thread and runs the session beside it.
func runGL(ctx context.Context, opts *options.Options, fragment string, cfg session.Config) (animator.Stats, error) {
	p, err := glpipeline.New(glpipeline.Config{
		Width:           opts.Width,
		Height:          opts.Height,
		Pattern:         opts.Pattern,
		Fragment:        fragment,
		InitialUniforms: shader.InitialUniforms(),
	})
	if err != nil {
		return animator.Stats{}, err
	}
	cfg.Animator.Stage = glpipeline.StageName

	type result struct {
		stats animator.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := session.Run(ctx, p, cfg)
		// make sure the render loop exits even when the session never touched it
		stopRenderLoop(p, logrus.WithField("component", "main"))
		done <- result{stats, err}
	}()

	loopErr := p.Run()
	res := <-done
	if loopErr != nil && !errors.Is(res.err, loopErr) {
		res.err = errors.Join(res.err, loopErr)
	}
	return res.stats, res.err
}

// stopRenderLoop sets p to Null. A failure only means the loop is already gone.
func stopRenderLoop(p interface{ SetState(pipeline.State) error }, log *logrus.Entry) {
	if err := p.SetState(pipeline.StateNull); err != nil {
		log.WithError(err).Debug("Render loop already stopped")
	}
}
