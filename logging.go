// logging.go - Structured logging setup

/*
Drift Engine - realtime noise synthesis and delivery for the Driftscape app

(c) 2025 - 2026 Driftscape Audio
https://github.com/driftscape/DriftEngine
License: GPLv3 or later
*/

package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// initLogging configures the process-wide logger. The level comes from
// DRIFT_LOG_LEVEL (trace/debug/info/warn/error); unset or invalid
// values mean info.
func initLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level := logrus.InfoLevel
	if raw := os.Getenv("DRIFT_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		} else {
			logrus.WithField("value", raw).Warn("Unknown DRIFT_LOG_LEVEL, using info")
		}
	}
	logrus.SetLevel(level)
}
