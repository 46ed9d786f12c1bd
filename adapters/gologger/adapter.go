// Package gologger resolves glog handles and bridges them to go-job's logger
// contracts, so the refresh sweep worker logs through the host's logger.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// JobLogging bundles resolved glog handles with their go-job bridges.
type JobLogging struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ForSweepWorker resolves logging for the credential refresh sweep and
// returns both the glog handles and the go-job bridges in one bundle.
func ForSweepWorker(provider glog.LoggerProvider, logger glog.Logger) JobLogging {
	resolvedProvider, resolvedLogger := Resolve("account-links", provider, logger)
	return JobLogging{
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}
