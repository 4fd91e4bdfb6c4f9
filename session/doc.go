// Package session owns the per-conversation runtime. One controller per
// conversation serializes turns over the append-only message log and drives
// mode composition, model generation, the tool-call lifecycle and the durable
// sync scheduler. The manager is the process-local controller registry and
// enforces conversation ownership.
package session
