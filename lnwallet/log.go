package lnwallet

import "github.com/btcsuite/btclog"

// log is the package-level logger, disabled by default until the host
// process installs one via UseLogger, matching the rest of this
// dependency tree.
var log = btclog.Disabled

// UseLogger lets the host process point this package's logging at its own
// btclog backend/subsystem.
func UseLogger(logger btclog.Logger) {
	log = logger
}
