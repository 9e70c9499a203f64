package application

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// loop drives the crawler and dispatches fetched pages until the run completes
func (uc *GenerateUseCase) loop(run *runState) {
	crawlCtx, cancelCrawl := context.WithCancel(run.ctx)
	defer cancelCrawl()

	crawlDone := make(chan error, 1)
	go func() {
		crawlDone <- uc.crawler.Run(crawlCtx, uc.config.SeedURL, uc)
	}()
	crawling := true

	ticker := time.NewTicker(uc.config.SchedulerInterval)
	defer ticker.Stop()
	metricsTicker := time.NewTicker(500 * time.Millisecond)
	defer metricsTicker.Stop()

	stop := func() {
		uc.setState(StateStopping)
		cancelCrawl()
		uc.waitInflight(run, uc.config.StopGrace)
		if crawling {
			select {
			case <-crawlDone:
			case <-time.After(uc.config.StopGrace):
				uc.logger.Warn("crawler did not stop in time")
			}
		}
		uc.complete(run)
	}

	for {
		select {
		case err := <-crawlDone:
			crawling = false
			crawlDone = nil
			if errors.Is(err, entity.ErrHostNotFound) {
				uc.abort(run, err)
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				uc.logger.WithError(err).Warn("crawler stopped with error")
			}
			uc.logger.Debug("crawler finished")
		case <-run.stopCh:
			uc.logger.Info("stopping crawl")
			stop()
			return
		case <-run.ctx.Done():
			stop()
			return
		case <-ticker.C:
			if uc.tick(run, crawling) {
				uc.waitInflight(run, uc.config.SettleTimeout)
				uc.complete(run)
				return
			}
		case <-metricsTicker.C:
			uc.notifyMetricsObservers()
		}
	}
}

// tick dispatches up to MaxConcurrency pending pages.
// It reports true once the crawler has finished and nothing is pending.
func (uc *GenerateUseCase) tick(run *runState, crawling bool) bool {
	if uc.pending.Len() == 0 {
		if !crawling {
			return true
		}
		uc.logger.Debug("waiting for fetched URLs")
		return false
	}

	for _, item := range uc.pending.TakeUpTo(uc.config.MaxConcurrency) {
		if item.Busy {
			continue
		}
		item.Busy = true
		uc.observeDepth(run, item.Depth)

		run.inflight.Add(1)
		run.inflightN.Add(1)
		go func(item *entity.QueueItem) {
			defer run.inflight.Done()
			defer run.inflightN.Add(-1)
			uc.accept(run.ctx, item)
		}(item)
	}
	return false
}

// accept runs tryAdd for item and emits its outcome
func (uc *GenerateUseCase) accept(ctx context.Context, item *entity.QueueItem) {
	logger := uc.logger.WithField("url", item.URL)

	result, err := uc.tryAdd(ctx, item)
	switch {
	case err == nil:
		if result.detectErr != nil {
			logger.WithError(result.detectErr).Warn("language detection failed")
		}
		logger.WithField("depth", result.record.Depth).Debug("added")
		uc.emit(&entity.Event{
			Type:   entity.EventAdd,
			URL:    result.record.Value,
			Record: result.record.Clone(),
			Err:    result.detectErr,
		})
	case errors.Is(err, entity.ErrAlreadyCrawled):
		uc.emit(&entity.Event{Type: entity.EventIgnore, URL: item.URL, Err: err})
	case errors.Is(err, entity.ErrBroken):
		uc.emit(&entity.Event{Type: entity.EventError, URL: item.URL, Error: entity.NewCrawlError(http.StatusNotFound, item.URL), Err: err})
	case errors.Is(err, entity.ErrStoreSealed):
		logger.Debug("accept finished after the sitemap was sealed, dropped")
	case ctx.Err() != nil:
		logger.Debug("accept cancelled")
	default:
		logger.WithError(err).Debug("accept failed")
		uc.emit(&entity.Event{
			Type:  entity.EventError,
			URL:   item.URL,
			Error: &entity.CrawlError{Code: http.StatusBadRequest, Message: err.Error(), URL: item.URL},
			Err:   err,
		})
	}
}
