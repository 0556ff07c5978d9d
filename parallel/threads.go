// package parallel contains parallel ForEach() and the thread count policy of the trainer.
package parallel

import "runtime"

import "github.com/klauspost/cpuid/v2"

// Threads resolves a configured thread count. Zero or negative means one
// goroutine per physical core, falling back to the logical CPU count when the
// core count cannot be detected.
func Threads(n int) int {
	if n > 0 {
		return n
	}
	if cpuid.CPU.PhysicalCores > 0 {
		return cpuid.CPU.PhysicalCores
	}
	return runtime.NumCPU()
}

// Describe reports the detected processor for startup logs
func Describe() string {
	return cpuid.CPU.BrandName
}
