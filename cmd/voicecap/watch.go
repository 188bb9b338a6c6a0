package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/agent"
	"github.com/kbukum/voicecap/config"
	"github.com/kbukum/voicecap/redis"
	"github.com/kbukum/voicecap/remote"
	"github.com/kbukum/voicecap/schedule"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the schedule and trigger window recordings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg := app.Cfg

			var redisClient *redis.Client
			if cfg.Schedule.Ledger == config.LedgerRedis {
				rc, err := redis.NewComponent(cfg.Redis, app.Logger)
				if err != nil {
					return err
				}
				if err := app.RegisterComponent(rc); err != nil {
					return err
				}
				redisClient = rc.Client()
			}

			client, err := remote.New(cfg.API, remote.WithLogger(app.Logger))
			if err != nil {
				return err
			}
			opts := append(cfg.Schedule.EngineOptions(),
				schedule.WithLedger(agent.NewLedger(cfg.Schedule, redisClient)),
				schedule.WithLogger(app.Logger),
				schedule.WithMetrics(app.Metrics),
			)
			engine := agent.NewWatchEngine(client, opts...)
			if err := app.RegisterComponent(engine); err != nil {
				return err
			}
			if err := mountStatus(app, agent.StatusSources{Engine: engine}.Snapshot); err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
}
