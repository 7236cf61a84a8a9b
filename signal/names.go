package signal

// Application boundary signals emitted and consumed by the engine. Spool
// prerequisites reference these and the per-spool names below by string,
// which is the only coupling between independently-authored spools.
const (
	// AppStart opens the boot sequence; every spool's validate phase is
	// gated on it.
	AppStart = "app:start"

	// AllValidated, AllConfigured and AllInitialized are the global barrier
	// signals, fired once every spool has completed the matching phase.
	AllValidated   = "all:validated"
	AllConfigured  = "all:configured"
	AllInitialized = "all:initialized"

	// AppReady is the final success signal of the boot sequence.
	AppReady = "app:ready"

	// AppStop tears the application down and unfreezes configuration.
	AppStop = "app:stop"
)

// SpoolValidated returns the completion signal a spool emits when its
// validate phase finishes.
func SpoolValidated(name string) string {
	return "spool:" + name + ":validated"
}

// SpoolConfigured returns the completion signal a spool emits when its
// configure phase finishes.
func SpoolConfigured(name string) string {
	return "spool:" + name + ":configured"
}

// SpoolInitialized returns the completion signal a spool emits when its
// initialize phase finishes.
func SpoolInitialized(name string) string {
	return "spool:" + name + ":initialized"
}
