// Package memory keeps movies-db inside its container memory limit.
//
// # Go memory limit
//
// GOMEMLIMIT is not derived from the cgroup limit, so a container can be
// OOM-killed long before the garbage collector works hard. Call
// [ConfigureFromEnv] first thing in main:
//
//	memory.ConfigureFromEnv()
//
// Environment variables:
//
//   - GOMEMLIMIT: read by the runtime and left alone when set.
//   - MEMORY_LIMIT: container limit in bytes, usually from the Kubernetes
//     Downward API (resourceFieldRef: limits.memory).
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the Go heap, in (0, 1].
//     Default 0.85. The remainder covers ffmpeg child processes, SQLite
//     (cgo) allocations and goroutine stacks. Lower it on hosts with long
//     movies where ffmpeg seeks use a lot of memory.
//
// # Preview backpressure
//
// Decoding and scaling a full video frame allocates several megabytes at
// once. [Monitor] samples the heap and pauses the preview worker while
// usage is above CriticalWaterMark, resuming once it drops below
// HighWaterMark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	pipeline := preview.New(index, store, probe, preview.Config{Gate: monitor})
//
// Without a memory limit the monitor never pauses.
package memory
