/*
Package ports defines the driven ports (interfaces) for the Inkwell engine.

These interfaces decouple playback from external implementations, so the same story
can be played from a CLI, an HTTP server or an embedding host, with playthrough states
kept in any storage backend.

# Key Interfaces

  - StatelessEngine: Starts, advances and selects on playthrough states it does not own.
  - StateStore: Responsible for persisting and loading playthrough State by session ID.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
