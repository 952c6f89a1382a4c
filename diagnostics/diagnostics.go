// Package diagnostics starts the gops agent and the pprof endpoint when the binary is built with the gops tag.
// Import it for side effects only.
package diagnostics

const (
	blockProfileRateEnv     = "OCPPNET_BLOCK_PROFILE_RATE"
	mutexProfileFractionEnv = "OCPPNET_MUTEX_PROFILE_FRACTION"
	pprofAddrEnv            = "OCPPNET_PPROF_ADDR"
	defaultPprofAddr        = "localhost:6060"
)
