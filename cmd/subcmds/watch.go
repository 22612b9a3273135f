package subcmds

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/michalmuskala/debounce/config"
	"github.com/michalmuskala/debounce/exec"
	"github.com/michalmuskala/debounce/logger"
	"github.com/michalmuskala/debounce/watcher"

	"github.com/urfave/cli/v2"
)

func WatchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch paths and run a command once changes settle",
		ArgsUsage: "[command...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "quiet",
				Usage: "Quiet period that must elapse after the last change",
			},
			&cli.StringSliceFlag{
				Name:  "path",
				Usage: "Paths to watch recursively",
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Glob patterns to ignore",
			},
		},
		Action: func(ctx *cli.Context) error {
			debug := ctx.Bool("debug")

			level := logger.InfoLevel
			if debug {
				level = logger.DebugLevel
			}
			log := logger.New(level)

			cfg := &config.Config{}
			if path := ctx.String("config"); path != "" {
				var err error
				cfg, err = config.Load(path)
				if err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
			}

			if ctx.Args().Len() > 0 {
				cfg.Command = strings.Join(ctx.Args().Slice(), " ")
			}
			if quiet := ctx.Duration("quiet"); quiet > 0 {
				cfg.Quiet = quiet
			}
			if paths := ctx.StringSlice("path"); len(paths) > 0 {
				cfg.Watch.Paths = paths
			}
			if ignore := ctx.StringSlice("ignore"); len(ignore) > 0 {
				cfg.Watch.Ignore = ignore
			}
			cfg.SetDefaults()

			if cfg.Command == "" {
				return cli.Exit("error: no command to run", 1)
			}

			watchCtx, cancel := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			w, err := watcher.NewWatcher(cfg.Watch.Paths, cfg.Watch.Ignore, cfg.Quiet, log)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			defer w.Stop()

			runLog := log.WithPrefix("run")
			w.OnChange(func(path string) {
				log.Info("changes settled, running",
					logger.String("path", path),
					logger.String("cmd", cfg.Command))

				if err := exec.RunCommand(watchCtx, cfg.Command, &exec.ShellOptions{
					Shell:  cfg.Shell,
					Stdout: runLog.Writer(),
					Stderr: runLog.Writer(),
				}); err != nil {
					log.Error("command failed", logger.Err(err))
				}
			})

			log.Info("watching",
				logger.String("paths", strings.Join(cfg.Watch.Paths, ", ")),
				logger.Duration("quiet", cfg.Quiet))

			return w.Start(watchCtx)
		},
	}
}
