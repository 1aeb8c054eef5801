package app

import (
	"context"
	"fmt"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/dag"
	"github.com/epigrid/epigridgo/internal/executor"
	"github.com/epigrid/epigridgo/internal/schedule"
)

// Run executes the application. In daemon mode the pipeline fires on its
// cron timetable until the context is canceled; otherwise it runs once.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.appConfig.HealthcheckPort > 0 {
		srv := a.startHealthcheckServer(ctx, a.appConfig.HealthcheckPort)
		defer a.stopHealthcheckServer(ctx, srv)
	}

	if !a.appConfig.Daemon {
		return a.runOnce(ctx)
	}

	spec := a.effectiveSchedule()
	scheduler, err := schedule.New(spec, a.runOnce)
	if err != nil {
		return err
	}
	a.logger.Info("Running as daemon.", "schedule", scheduler.Spec())
	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// effectiveSchedule picks the cron spec: the CLI flag wins, then the
// pipeline's schedule attribute, then the built-in default.
func (a *App) effectiveSchedule() string {
	if a.appConfig.Schedule != "" {
		return a.appConfig.Schedule
	}
	if a.config.Pipeline != nil && a.config.Pipeline.Schedule != "" {
		return a.config.Pipeline.Schedule
	}
	return schedule.DefaultSpec
}

// runOnce performs a single full pipeline execution.
func (a *App) runOnce(ctx context.Context) error {
	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.config, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No nodes found in graph, execution not required.")
		return nil
	}

	a.logger.Info("Starting concurrent execution...")
	exec := executor.New(graph, a.appConfig.WorkerCount, a.registry, a.converter)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")
	return nil
}
