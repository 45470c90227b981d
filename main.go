package main

import (
	"soundcheck/cmd"
	"soundcheck/internal/log"
	"soundcheck/pkg/build"
)

// main is the entry point for the screening engine. The flow has two
// phases:
//
// 1. Startup (Cold Path):
//   - Load build metadata stamped in at link time
//   - Parse command line arguments
//
// 2. Command Phase:
//   - Dispatch to the selected command (serve, tone, simulate, play,
//     devices), which owns its runtime concerns: the server installs
//     signal handling, playback initializes PortAudio.
func main() {
	// A source build has no linker flags; the placeholders are fine
	// for everything except the --version banner.
	if err := build.Initialize(); err != nil {
		log.Debugf("build metadata not stamped: %v", err)
	}

	defer log.Sync()

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
