package commands

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/events"
	"taskflow/internal/logger"
	"taskflow/internal/repository"
	"taskflow/internal/server"
	"taskflow/internal/sweeper"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	interval time.Duration
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Deadline sweeper for TaskFlow",
	Long: `Scans tasks whose deadline falls 24 to 25 hours from now and sends a
deadline warning to each assignee through the event bus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
	rootCmd.AddCommand(runCmd, onceCmd)
	runCmd.Flags().DurationVar(&interval, "interval", 0, "override SWEEP_INTERVAL")
}

// runtime is everything a sweep needs, plus the resources to release after.
type runtime struct {
	sweeper *sweeper.Sweeper
	bus     *events.Bus
	log     *logrus.Logger
	closers []func() error
}

func (r *runtime) Close() {
	if r.bus != nil {
		r.bus.Close()
	}
	for _, c := range r.closers {
		_ = c()
	}
}

func setup(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if interval > 0 {
		cfg.SweepInterval = interval
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := server.OpenDB(cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{log: log}
	if sqlDB, err := db.DB(); err == nil {
		rt.closers = append(rt.closers, sqlDB.Close)
	}

	rdb, err := server.OpenRedis(ctx, cfg, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open redis: %w", err)
	}
	if rdb == nil {
		log.Warn("REDIS_ADDR not set, deadline warnings will not reach any API instance")
	} else {
		rt.closers = append(rt.closers, rdb.Close)
	}

	rt.bus = server.NewBus(server.NewBroker(rdb, cfg, log), cfg, log)
	repos := repository.NewStore(db).Repositories()
	rt.sweeper = sweeper.New(repos.Tasks, repos.Users, rt.bus, cfg.SweepInterval, log)
	return rt, nil
}
