package main

import "runtime/pprof"
import "os"
import "os/signal"
import "syscall"

// startProfile collects a cpu profile into default.pgo when NCSS_PGO is set,
// until the process is interrupted
func startProfile() {
	if os.Getenv("NCSS_PGO") == "" {
		return
	}
	f, err := os.Create("default.pgo")
	if err != nil {
		log.Warningf("cpu profile: %v", err)
		return
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Warningf("cpu profile: %v", err)
		f.Close()
		return
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		pprof.StopCPUProfile()
		f.Close()
		os.Exit(130)
	}()
}
