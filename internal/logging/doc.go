// Package logging provides structured logging for printerpick.
//
// It wraps a zap logger with package-level helpers. Logging is silent unless
// a level is given, either via Initialize or the PRINTERPICK_LOG_LEVEL
// environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Log lines are written to stderr (or PRINTERPICK_LOG_FILE) so that stdout
// only ever carries the selected printer target.
//
// Domain helpers:
//
//	logging.LogDeviceFound("mdns", "EPSON TM-T88VI", "TCP:192.168.1.20")
//	logging.LogDiscoveryEvent("restart")
//	logging.LogStopRetry(attempt, wait, err)
package logging
