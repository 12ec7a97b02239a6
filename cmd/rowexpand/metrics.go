package main

import (
	"go.uber.org/zap"

	"rowexpand/internal/config"
	"rowexpand/internal/metrics"
	"rowexpand/internal/metrics/datadog"
	"rowexpand/internal/metrics/prompush"
)

const (
	defaultPushgatewayURL = "http://localhost:9091"
	defaultDogStatsDAddr  = "127.0.0.1:8125"
)

// setupMetrics installs the configured backend and returns a function that
// flushes it. Backend failures only disable metrics; they never fail a run.
func setupMetrics(job config.Job, logger *zap.Logger) (flush func()) {
	noop := func() {}
	m := job.Metrics

	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "pushgateway":
		url := m.PushgatewayURL
		if url == "" {
			url = defaultPushgatewayURL
		}
		var pb *prompush.Backend
		pb, err = prompush.NewBackend(job.Job, url)
		if err == nil {
			b = pb
			logger.Info("metrics: pushgateway enabled", zap.String("url", url))
		}

	case "datadog":
		addr := m.DogStatsDAddr
		if addr == "" {
			addr = defaultDogStatsDAddr
		}
		var db *datadog.Backend
		db, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "rowexpand.",
			GlobalTags: []string{"job:" + job.Job},
		})
		if err == nil {
			b = db
			logger.Info("metrics: datadog enabled", zap.String("addr", addr))
		}

	case "", "none":
		logger.Debug("metrics: disabled")
		return noop

	default:
		logger.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", m.Backend))
		return noop
	}

	if err != nil {
		logger.Warn("metrics: backend init failed; using nop", zap.String("backend", m.Backend), zap.Error(err))
		return noop
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics: flush failed", zap.Error(err))
		}
	}
}
