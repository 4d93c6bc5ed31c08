// Package profile provides optional runtime profiling for isolate.
//
// Profiling integrates [github.com/pkg/profile] and is compiled in only when
// building with the "pprof" build tag:
//
//	go build -tags pprof
//
// Without the tag every [Profiler] is a no-op and [Modes] is empty.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     block (synchronization) profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace
//
// # Usage
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles"}
//	defer p.Start().Stop()
//
// From the command line:
//
//	isolate --pprof-mode=cpu eval 'len(this)' -r receiver.yaml
//
// Profiles are written to $XDG_CACHE_HOME/isolate/pprof by default and can
// be inspected with go tool pprof:
//
//	go tool pprof -http=: ~/.cache/isolate/pprof/cpu.pprof
//
// With the tag, [net/http/pprof] handlers are also registered on the default
// HTTP mux.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
