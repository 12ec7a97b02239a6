package main

import (
	"fmt"
	"io"

	"rowexpand/internal/config"
)

// loadJob reads the job file, applies flag overrides and prints every
// validation issue to w. Errors fail the load; warnings do not.
func loadJob(f flags, w io.Writer) (config.Job, error) {
	job, err := config.Load(f.cfgPath)
	if err != nil {
		return job, err
	}
	applyFlags(&job, f)

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return job, fmt.Errorf("configuration is invalid: %s", f.cfgPath)
	}
	return job, nil
}

// applyFlags gives non-empty flags precedence over the file and environment.
func applyFlags(job *config.Job, f flags) {
	if f.dryRun {
		job.Runtime.DryRun = true
	}
	if f.metricsBackend != "" {
		job.Metrics.Backend = f.metricsBackend
	}
	if f.pushgatewayURL != "" {
		job.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if f.dogstatsdAddr != "" {
		job.Metrics.DogStatsDAddr = f.dogstatsdAddr
	}
	if f.logLevel != "" {
		job.Log.Level = f.logLevel
	}
}
