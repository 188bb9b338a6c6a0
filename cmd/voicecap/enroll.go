package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/agent"
	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/capture/ffmpeg"
	"github.com/kbukum/voicecap/remote"
	"github.com/kbukum/voicecap/script"
)

func newEnrollCmd(flags *rootFlags) *cobra.Command {
	var (
		lecturerID string
		duration   time.Duration
		scriptFile string
		mode       string
	)

	cmd := &cobra.Command{
		Use:   "enroll --lecturer <id>",
		Short: "Record a guided voice sample and upload it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(lecturerID) == "" {
				return fmt.Errorf("--lecturer is required")
			}
			ctx := cmd.Context()
			app, err := loadApp(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg := app.Cfg
			if scriptFile == "" {
				scriptFile = cfg.Script.File
			}
			if mode != "" {
				cfg.Script.Mode = mode
			}
			trackerOpts, err := cfg.Script.TrackerOptions()
			if err != nil {
				return err
			}
			lines, err := script.LoadFile(scriptFile)
			if err != nil {
				return err
			}
			if duration <= 0 {
				duration = cfg.Capture.MaxDuration
			}
			if duration > capture.FreeformCeiling {
				return fmt.Errorf("--duration must not exceed %s", capture.FreeformCeiling)
			}

			client, err := remote.New(cfg.API, remote.WithLogger(app.Logger))
			if err != nil {
				return err
			}
			uploader := remote.NewVoiceSampleUploader(client, lecturerID)
			mic := capture.Exclusive(ffmpeg.New(cfg.Capture.Microphone(), app.Logger))
			enroller := agent.NewEnroller(mic, newDecoder(cfg.Capture, app.Logger), uploader,
				agent.WithConstraints(cfg.Capture.Constraints()),
				agent.WithDrainTimeout(cfg.Capture.DrainTimeout),
				agent.WithLogger(app.Logger),
				agent.WithMetrics(app.Metrics),
			)
			if err := mountStatus(app, agent.StatusSources{Enroller: enroller}.Snapshot); err != nil {
				return err
			}

			con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
			return app.RunTask(ctx, func(ctx context.Context) error {
				res, err := runEnroll(ctx, enroller, con, agent.EnrollRequest{
					Lines:          lines,
					TrackerOptions: trackerOpts,
					MaxDuration:    duration,
				})
				if err != nil {
					return err
				}
				if res.Discarded {
					con.printf("Recording discarded.\n")
					return nil
				}
				con.printf("Uploaded %s voice sample for %s", res.Artifact.Duration.Round(100*time.Millisecond), lecturerID)
				if last := uploader.Last(); last != nil && last.Path != "" {
					con.printf(" (%s)", last.Path)
				}
				con.printf(".\n")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&lecturerID, "lecturer", "", "lecturer id the sample belongs to")
	cmd.Flags().DurationVar(&duration, "duration", 0, "recording ceiling (default capture.max_duration)")
	cmd.Flags().StringVar(&scriptFile, "script", "", "script file, one line per row (default script.file)")
	cmd.Flags().StringVar(&mode, "mode", "", "script pacing: ack|time (default script.mode)")
	return cmd
}

// runEnroll drives one enrollment from console input. Input is read by the
// stop loop while recording and by the review prompt afterwards, never both.
func runEnroll(ctx context.Context, e *agent.Enroller, con *console, req agent.EnrollRequest) (*agent.EnrollResult, error) {
	stop := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stop) }) }

	var tracker atomic.Pointer[script.Tracker]
	quit := make(chan struct{})
	loopDone := make(chan struct{})
	var quitOnce sync.Once
	endLoop := func() {
		quitOnce.Do(func() { close(quit) })
		<-loopDone
	}

	req.Stop = stop
	req.OnEvent = func(ev capture.Event, tr *script.Tracker) {
		tracker.Store(tr)
		con.onEvent(ev, tr)
	}
	req.Review = func(ctx context.Context, art *capture.Artifact) (bool, error) {
		endLoop()
		return con.confirm(ctx, fmt.Sprintf("Upload the %s recording?", art.Duration.Round(100*time.Millisecond)))
	}

	go func() {
		defer close(loopDone)
		for {
			select {
			case line, ok := <-con.lines:
				if !ok {
					return
				}
				if handleInput(line, tracker.Load(), requestStop) {
					return
				}
			case <-quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	res, err := e.Enroll(ctx, req)
	endLoop()
	return res, err
}

// handleInput applies one operator line and reports whether recording input
// is finished.
func handleInput(line string, tr *script.Tracker, stop func()) bool {
	switch strings.ToLower(line) {
	case "s", "stop", "q":
		stop()
		return true
	}
	if tr == nil {
		return false
	}
	if tr.Mode() == script.TimeDriven {
		if line == "" {
			stop()
			return true
		}
		return false
	}
	if n, err := strconv.Atoi(line); err == nil {
		tr.Select(n - 1)
		return false
	}
	if line == "" {
		tr.Confirm()
		if tr.Done() {
			stop()
			return true
		}
	}
	return false
}
