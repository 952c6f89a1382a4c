//go:build gops
// +build gops

package diagnostics

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"strconv"

	"github.com/google/gops/agent"
)

func init() {
	log := slog.Default().With("context", "diagnostics")

	if err := agent.Listen(agent.Options{}); err != nil {
		log.Error("failed to start gops agent", "error", err)
		os.Exit(1)
	}

	pprofRequired := false

	if vals := os.Getenv(blockProfileRateEnv); vals != "" {
		val, err := strconv.Atoi(vals)

		if err != nil {
			log.Error("invalid block profile rate", "value", vals)
			os.Exit(1)
		}

		runtime.SetBlockProfileRate(val)
		pprofRequired = true
		log.Info("block profiling enabled", "rate", val)
	}

	if vals := os.Getenv(mutexProfileFractionEnv); vals != "" {
		val, err := strconv.Atoi(vals)

		if err != nil {
			log.Error("invalid mutex profile fraction", "value", vals)
			os.Exit(1)
		}

		runtime.SetMutexProfileFraction(val)
		pprofRequired = true
		log.Info("mutex profiling enabled", "fraction", val)
	}

	// Run pprof web server as well to be able to capture blocks and mutex profiles
	// (not supported by gops)
	if pprofRequired {
		addr := os.Getenv(pprofAddrEnv)
		if addr == "" {
			addr = defaultPprofAddr
		}

		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil { // nolint:gosec
				log.Error("pprof server failed", "error", err)
			}
		}()
	}
}
