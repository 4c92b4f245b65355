// Package state persists gate records partitioned by fingerprint.
//
// The Store interface is a flat, single-key string store. Each fingerprint
// owns three independent slots (lock, trial, license) addressed by keys of
// the form "trialgate_<slot>_<fingerprint>". Writes to different slots are
// not transactional; readers tolerate torn views because the gate is
// advisory.
//
// Key concepts:
//   - Store: Read/Write/Delete of one key (memory, file, sqlite, redis backends)
//   - Records: typed access to the lock, trial and license slots
//   - TrialRecord: the persisted trial start time and used flag
package state
