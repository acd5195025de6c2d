// Package coordtest provides an in-memory double for coord.Conn so the
// base and request/response queues can be exercised without a live
// ensemble. It implements the same ordering and watch-delivery guarantees
// the real adapter relies on: strictly monotonic zero-padded sequential
// names, one-shot watches, and all-or-nothing multi-delete.
package coordtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rzbill/zkq/internal/coord"
)

type node struct {
	data     []byte
	version  int32
	ephem    bool
	children map[string]struct{}
	// nextSeq is the next sequential suffix to hand out under this node,
	// mirroring ZooKeeper's per-parent monotonic counter.
	nextSeq int64
	// childWatches/dataWatches hold the channels to fire on the next
	// mutation; each is one-shot and removed once fired.
	childWatches []chan coord.Event
	dataWatches  []chan coord.Event
}

// Conn is an in-memory coord.Conn. The zero value is not usable; use New.
type Conn struct {
	mu    sync.Mutex
	nodes map[string]*node
	// failNext, if set, is returned (and cleared) by the next call whose
	// method name matches, letting tests simulate a transient failure.
	failNext map[string]error
}

// New returns a fresh store containing only the root "/" node.
func New() *Conn {
	c := &Conn{nodes: make(map[string]*node), failNext: make(map[string]error)}
	c.nodes["/"] = &node{children: make(map[string]struct{})}
	return c
}

// FailNext arranges for the named method's next call to return err instead
// of executing, for exercising error paths deterministically.
func (c *Conn) FailNext(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext[method] = err
}

func (c *Conn) takeFailure(method string) error {
	err, ok := c.failNext[method]
	if ok {
		delete(c.failNext, method)
	}
	return err
}

func parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

func (c *Conn) Create(_ context.Context, path string, data []byte, mode coord.CreateMode) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Create"); err != nil {
		return "", err
	}
	par := c.nodes[parent(path)]
	if par == nil {
		return "", coord.ErrNoNode
	}
	finalPath := path
	sequential := mode == coord.PersistentSequential || mode == coord.EphemeralSequential
	if sequential {
		seq := par.nextSeq
		par.nextSeq++
		finalPath = fmt.Sprintf("%s%010d", path, seq)
	}
	if _, exists := c.nodes[finalPath]; exists {
		return "", coord.ErrNodeExists
	}
	n := &node{data: data, children: make(map[string]struct{}), ephem: mode == coord.Ephemeral || mode == coord.EphemeralSequential}
	c.nodes[finalPath] = n
	name := strings.TrimPrefix(finalPath, parentSlash(finalPath))
	par.children[name] = struct{}{}
	c.fireChildren(parent(finalPath))
	return finalPath, nil
}

func parentSlash(path string) string {
	p := parent(path)
	if p == "/" {
		return "/"
	}
	return p + "/"
}

func (c *Conn) Children(_ context.Context, path string) ([]string, *coord.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Children"); err != nil {
		return nil, nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return nil, nil, coord.ErrNoNode
	}
	return sortedKeys(n.children), statOf(n), nil
}

func (c *Conn) ChildrenW(_ context.Context, path string) ([]string, *coord.Stat, <-chan coord.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("ChildrenW"); err != nil {
		return nil, nil, nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return nil, nil, nil, coord.ErrNoNode
	}
	ch := make(chan coord.Event, 1)
	n.childWatches = append(n.childWatches, ch)
	return sortedKeys(n.children), statOf(n), ch, nil
}

func (c *Conn) Get(_ context.Context, path string) ([]byte, *coord.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Get"); err != nil {
		return nil, nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return nil, nil, coord.ErrNoNode
	}
	return n.data, statOf(n), nil
}

func (c *Conn) GetW(_ context.Context, path string) ([]byte, *coord.Stat, <-chan coord.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("GetW"); err != nil {
		return nil, nil, nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return nil, nil, nil, coord.ErrNoNode
	}
	ch := make(chan coord.Event, 1)
	n.dataWatches = append(n.dataWatches, ch)
	return n.data, statOf(n), ch, nil
}

func (c *Conn) Set(_ context.Context, path string, data []byte, version int32) (*coord.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Set"); err != nil {
		return nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return nil, coord.ErrNoNode
	}
	if version >= 0 && version != n.version {
		return nil, coord.ErrVersionMismatch
	}
	n.data = data
	n.version++
	c.fireData(path, coord.EventDataChanged)
	return statOf(n), nil
}

func (c *Conn) Delete(_ context.Context, path string, version int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Delete"); err != nil {
		return err
	}
	return c.deleteLocked(path, version)
}

func (c *Conn) deleteLocked(path string, version int32) error {
	n := c.nodes[path]
	if n == nil {
		return coord.ErrNoNode
	}
	if version >= 0 && version != n.version {
		return coord.ErrVersionMismatch
	}
	delete(c.nodes, path)
	if par := c.nodes[parent(path)]; par != nil {
		name := strings.TrimPrefix(path, parentSlash(path))
		delete(par.children, name)
	}
	c.fireData(path, coord.EventNodeDeleted)
	c.fireChildren(parent(path))
	return nil
}

func (c *Conn) Exists(_ context.Context, path string) (bool, *coord.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Exists"); err != nil {
		return false, nil, err
	}
	n := c.nodes[path]
	if n == nil {
		return false, nil, nil
	}
	return true, statOf(n), nil
}

// Multi deletes all operands atomically: if any target is missing or
// version-mismatched, none are deleted.
func (c *Conn) Multi(_ context.Context, ops ...coord.Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure("Multi"); err != nil {
		return err
	}
	for _, op := range ops {
		n := c.nodes[op.Path]
		if n == nil {
			return coord.ErrNoNode
		}
		if op.Version >= 0 && op.Version != n.version {
			return coord.ErrVersionMismatch
		}
	}
	for _, op := range ops {
		_ = c.deleteLocked(op.Path, -1)
	}
	return nil
}

// ExpireSession simulates session loss: every ephemeral node this fake
// tracks is removed and every outstanding watch fires a session event.
func (c *Conn) ExpireSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, n := range c.nodes {
		if n.ephem {
			_ = c.deleteLocked(path, -1)
		}
	}
	for _, n := range c.nodes {
		for _, ch := range n.childWatches {
			ch <- coord.Event{Type: coord.EventSession, SessionLost: true}
			close(ch)
		}
		for _, ch := range n.dataWatches {
			ch <- coord.Event{Type: coord.EventSession, SessionLost: true}
			close(ch)
		}
		n.childWatches = nil
		n.dataWatches = nil
	}
}

func (c *Conn) fireChildren(path string) {
	n := c.nodes[path]
	if n == nil {
		return
	}
	watches := n.childWatches
	n.childWatches = nil
	for _, ch := range watches {
		ch <- coord.Event{Type: coord.EventChildrenChanged, Path: path}
		close(ch)
	}
}

func (c *Conn) fireData(path string, t coord.EventType) {
	n := c.nodes[path]
	if n == nil {
		return
	}
	watches := n.dataWatches
	n.dataWatches = nil
	for _, ch := range watches {
		ch <- coord.Event{Type: t, Path: path}
		close(ch)
	}
}

func statOf(n *node) *coord.Stat {
	return &coord.Stat{Version: n.version, NumChildren: int32(len(n.children))}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ coord.Conn = (*Conn)(nil)
