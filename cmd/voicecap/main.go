// Command voicecap records guided voice samples and drives scheduled
// classroom recordings against the monitoring API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/audio/decode"
	"github.com/kbukum/voicecap/bootstrap"
	"github.com/kbukum/voicecap/config"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/process"
	"github.com/kbukum/voicecap/resilience"
	"github.com/kbukum/voicecap/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "voicecap",
		Short:         "Speaker voice capture and scheduled recording agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: search voicecap.yml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", ".env file loaded before the environment is read")

	root.AddCommand(newEnrollCmd(flags))
	root.AddCommand(newWatchCmd(flags))
	root.AddCommand(newEncodeCmd(flags))
	root.AddCommand(newWindowsCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := &config.Config{}
	if err := config.Load(cfg,
		config.WithConfigFile(flags.configFile),
		config.WithEnvFile(flags.envFile),
	); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadApp(ctx context.Context, flags *rootFlags, summary io.Writer) (*bootstrap.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewApp(ctx, cfg, bootstrap.WithSummaryOutput(summary))
}

// newDecoder passes WAV through and sends every other container to ffmpeg.
func newDecoder(cfg config.CaptureConfig, log *logger.Logger) *decode.Registry {
	breaker := resilience.DefaultCircuitBreakerConfig("ffmpeg-decode")
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("decoder breaker moved", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
	}
	runner := process.NewRunner(&breaker)
	ff := decode.NewFFmpeg(cfg.Decoder(), decode.WithRunner(runner), decode.WithLogger(log))
	return decode.NewDefaultRegistry(ff)
}

// mountStatus registers the status server when it is enabled.
func mountStatus(app *bootstrap.App, status server.StatusProvider) error {
	if !app.Cfg.Server.Enabled {
		return nil
	}
	srv := server.New(app.Cfg.Server, app.Logger)
	srv.Mount(server.Routes{
		Service: app.Name,
		Health:  app.Components.HealthAll,
		Status:  status,
	})
	return app.RegisterComponent(server.NewComponent(srv))
}
