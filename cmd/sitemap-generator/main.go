package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/WangYihang/Sitemap-Generator/pkg/common"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/metrics"
	"github.com/WangYihang/Sitemap-Generator/pkg/interface/cli"
	"github.com/WangYihang/Sitemap-Generator/pkg/interface/presenter"
	"github.com/WangYihang/Sitemap-Generator/pkg/logging"
)

func main() {
	// Parse command line flags
	config, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if config.Version {
		fmt.Println(common.PV.String())
		return
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(config *cli.Config) error {
	// Logs would corrupt the dashboard, so they go to a file or nowhere
	var logOutput io.Writer = os.Stderr
	if config.LogFile != "" {
		f, err := logging.OpenLogFile(config.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOutput = f
	} else if config.ShowDashboard {
		logOutput = io.Discard
	}
	logger, err := logging.NewLogger(logging.Options{
		Level:  config.LogLevel,
		Format: config.LogFormat,
		Output: logOutput,
	})
	if err != nil {
		return err
	}

	// Assemble use case with all dependencies
	assembler := cli.NewAssembler(config, logger)
	useCase, err := assembler.AssembleUseCase()
	if err != nil {
		return err
	}
	defer assembler.Close()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, writing sitemap for the pages crawled so far")
		useCase.Stop()
	}()

	if config.MetricsAddr != "" {
		collector := metrics.NewCollector()
		useCase.RegisterObserver(collector)
		useCase.RegisterMetricsObserver(collector)
		go func() {
			if err := collector.Serve(ctx, config.MetricsAddr, logger); err != nil {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	if err := useCase.Start(ctx); err != nil {
		return err
	}

	if config.ShowDashboard {
		dashboard := presenter.NewDashboard(config.Args.URL, useCase.Stop)
		useCase.RegisterMetricsObserver(dashboard)

		go func() {
			useCase.Wait(ctx)
			dashboard.Finish()
		}()

		// Start TUI
		if err := dashboard.Run(); err != nil {
			useCase.Stop()
			useCase.Wait(ctx)
			return fmt.Errorf("TUI error: %w", err)
		}
	} else {
		progress := presenter.NewProgress(os.Stderr, config.Args.URL)
		useCase.RegisterMetricsObserver(progress)
		useCase.Wait(ctx)
		progress.Finish()
	}

	err = useCase.Wait(ctx)
	if stats := useCase.Stats(); stats != nil {
		fmt.Println(presenter.RenderSummary(stats))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
