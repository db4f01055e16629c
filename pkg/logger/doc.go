// Package logger provides a structured logging interface for the harvester.
//
// It wraps zerolog. A Logger is constructed explicitly for a run and handed to
// every component; there is no package-level logger. A run logger writes:
//   - human-readable lines with timestamp and level to stderr
//   - JSON lines appended to the configured log file
//
// Both outputs share a run_id field so the lines of one run can be grouped.
//
// Usage:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//
//	log.WithField("year", 2023).Info("Fetching season")
//	log.WithError(err).Error("Failed to fetch details")
//
// Tests use NewTestLogger to inspect what was logged, or NewNopLogger to
// discard it.
package logger
