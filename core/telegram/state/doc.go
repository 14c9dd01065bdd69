// Package state keeps in-flight conversations in memory. Sessions are keyed
// by chat and user, and work on one key is serialised while different keys
// proceed in parallel. Nothing survives a restart.
package state
