/*
Package session implements session management and persistence orchestration.

A session is a named playthrough whose State lives in a ports.StateStore. The Manager
runs every playback call as load, apply, save under a per-session lock, optionally
backed by a distributed lock so several replicas can serve the same sessions.
*/
package session
