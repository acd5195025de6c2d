package coord

import (
	"context"
	"errors"
)

// ErrNoNode is returned when an operation targets a path that does not
// exist. Callers that consume from a queue treat it as "the head was
// already taken by a peer", never as an infrastructure failure.
var ErrNoNode = errors.New("coord: no such node")

// ErrNodeExists is returned by Create when the target path already exists.
var ErrNodeExists = errors.New("coord: node exists")

// ErrVersionMismatch is returned by Delete/Set when the supplied version
// does not match the node's current version.
var ErrVersionMismatch = errors.New("coord: version mismatch")

// ErrSessionExpired propagates a lost session; the caller is expected to
// reconnect and re-install watches. zkq never retries this internally.
var ErrSessionExpired = errors.New("coord: session expired")

// CreateMode controls node lifetime and naming.
type CreateMode int

const (
	// Persistent nodes survive session loss. Request nodes use this mode.
	Persistent CreateMode = iota
	// PersistentSequential nodes are persistent with a server-assigned,
	// zero-padded monotonic suffix appended to the given path.
	PersistentSequential
	// Ephemeral nodes are deleted by the server when the creating session
	// ends. Not used directly by the queue (responses use the sequential
	// variant) but part of the full contract.
	Ephemeral
	// EphemeralSequential combines both: deleted on session end, suffix
	// assigned atomically by the server. Response nodes use this mode.
	EphemeralSequential
)

// EventType classifies a watch callback.
type EventType int

const (
	// EventChildrenChanged fires for a child-list watch when a child is
	// added or removed under the watched path.
	EventChildrenChanged EventType = iota
	// EventDataChanged fires for a data watch when a node's value changes.
	EventDataChanged
	// EventNodeDeleted fires for a data watch when the watched node itself
	// is removed.
	EventNodeDeleted
	// EventSession fires on connection state transitions (reconnect,
	// session expiry). It never consumes a previously installed watch.
	EventSession
)

// Event is delivered on the channel returned by a watch-installing call.
type Event struct {
	Type EventType
	Path string
	// SessionLost is set on EventSession events that represent a fatal
	// session expiry rather than a transient disconnect/reconnect blip.
	SessionLost bool
}

// IsSessionEvent reports whether the event is a bare connection-state
// signal that must be ignored by watch-consuming logic without triggering
// a re-fetch. See the watch-scope invariant in BQ's cache coherence
// protocol.
func (e Event) IsSessionEvent() bool { return e.Type == EventSession }

// Stat carries the small amount of node metadata the queue needs.
type Stat struct {
	Version      int32
	NumChildren  int32
	CreationTxID int64
}

// Op is a single step of an atomic multi-op batch. Only Delete is needed by
// the queue's bulk-removal path; the contract stays narrow on purpose.
type Op struct {
	Path    string
	Version int32 // -1 matches any version ("version-wildcard")
}

// DeleteOp builds a multi-op delete step that matches any version.
func DeleteOp(path string) Op { return Op{Path: path, Version: -1} }

// Conn is the subset of coordination-service primitives the queue needs.
// Implementations must honor ZooKeeper's sequential-naming guarantee:
// suffixes are strictly monotonic per parent and zero-padded so that
// lexical order equals numeric order.
type Conn interface {
	// Create makes a node at path (or path+sequence, for the sequential
	// modes) with the given payload, returning the final path.
	Create(ctx context.Context, path string, data []byte, mode CreateMode) (string, error)

	// Children lists the immediate children of path, sorted lexically.
	Children(ctx context.Context, path string) ([]string, *Stat, error)

	// ChildrenW is like Children but also installs a one-shot watch for
	// the next child-list change. The returned channel delivers exactly
	// one event (or closes on cancellation/session loss) and does not
	// auto-reinstall: callers must call ChildrenW again after it fires.
	ChildrenW(ctx context.Context, path string) ([]string, *Stat, <-chan Event, error)

	// Get reads a node's current payload.
	Get(ctx context.Context, path string) ([]byte, *Stat, error)

	// GetW is like Get but also installs a one-shot data watch.
	GetW(ctx context.Context, path string) ([]byte, *Stat, <-chan Event, error)

	// Set overwrites a node's payload. version=-1 matches any version.
	Set(ctx context.Context, path string, data []byte, version int32) (*Stat, error)

	// Delete removes a node. version=-1 matches any version. Returns
	// ErrNoNode if the path does not exist.
	Delete(ctx context.Context, path string, version int32) error

	// Exists reports whether path exists and, if so, how many children it
	// has (used by the capacity-bound recheck in offer).
	Exists(ctx context.Context, path string) (bool, *Stat, error)

	// Multi executes an all-or-nothing batch of delete operations. If any
	// sub-op fails because its node is missing, the whole batch is
	// rejected; callers fall back to per-node deletes.
	Multi(ctx context.Context, ops ...Op) error
}
