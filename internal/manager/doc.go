// Package manager coordinates daemon readiness for a single pinned model.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, getters and Close.
//   - config.go: ManagerConfig, collaborator interfaces and defaults.
//   - types.go: readiness states, public status codes and Snapshot.
//   - guard.go: FetchGuard, the at-most-one-download-per-model guard.
//   - status.go: Status/Bootstrap, the readiness state machine.
//   - chat.go: Chat and the generate forwarder with its fetch-and-retry.
//   - fetch.go: background fetch goroutines and progress tracking.
//   - errors.go: error types and helpers (IsInvalidRequest, IsModelAbsent, ...).
//   - events.go / eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors for launches, fetches and forwards.
//
// Every query re-evaluates readiness from the daemon's actual state; the
// recorded state is a cache used for reporting (Snapshot, Ready) only.
package manager
