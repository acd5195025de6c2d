package coord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZKConn adapts a *zk.Conn to the Conn contract. It is the only place in
// zkq that imports the go-zookeeper package; BQ and RRQ never see *zk.Conn
// directly.
type ZKConn struct {
	conn *zk.Conn
	acl  []zk.ACL
}

// DialOptions configures a new ZKConn.
type DialOptions struct {
	Servers        []string
	SessionTimeout time.Duration
	// ACL applied to every node this process creates. Defaults to
	// zk.WorldACL(zk.PermAll) when nil, matching an unauthenticated
	// dev/test ensemble.
	ACL []zk.ACL
	// Logger, when set, receives the go-zookeeper client's internal
	// connection-state logging instead of the library's stdlib-log
	// default, keeping it on the same pipeline as the rest of the
	// process's structured logs.
	Logger *slog.Logger
}

// Dial connects to the ensemble and returns a ready Conn along with the raw
// session-event channel so callers can log connection-state transitions.
func Dial(opts DialOptions) (*ZKConn, <-chan zk.Event, error) {
	timeout := opts.SessionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	acl := opts.ACL
	if acl == nil {
		acl = zk.WorldACL(zk.PermAll)
	}
	conn, events, err := zk.Connect(opts.Servers, timeout)
	if err != nil {
		return nil, nil, err
	}
	if opts.Logger != nil {
		conn.SetLogger(slogZKLogger{l: opts.Logger})
	}
	return &ZKConn{conn: conn, acl: acl}, events, nil
}

// slogZKLogger adapts an *slog.Logger to go-zookeeper's Logger interface
// (a single Printf(format string, args ...interface{}) method).
type slogZKLogger struct {
	l *slog.Logger
}

func (l slogZKLogger) Printf(format string, args ...interface{}) {
	l.l.Info(fmt.Sprintf(format, args...))
}

// Close terminates the session. Any ephemeral-sequential response nodes
// this session created are removed by the server as part of teardown.
func (c *ZKConn) Close() { c.conn.Close() }

func toZKFlags(mode CreateMode) int32 {
	switch mode {
	case PersistentSequential:
		return zk.FlagSequence
	case Ephemeral:
		return zk.FlagEphemeral
	case EphemeralSequential:
		return zk.FlagEphemeral | zk.FlagSequence
	default:
		return 0
	}
}

func (c *ZKConn) Create(_ context.Context, path string, data []byte, mode CreateMode) (string, error) {
	p, err := c.conn.Create(path, data, toZKFlags(mode), c.acl)
	return p, translateErr(err)
}

func (c *ZKConn) Children(_ context.Context, path string) ([]string, *Stat, error) {
	names, st, err := c.conn.Children(path)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	sort.Strings(names)
	return names, toStat(st), nil
}

func (c *ZKConn) ChildrenW(_ context.Context, path string) ([]string, *Stat, <-chan Event, error) {
	names, st, zkEvents, err := c.conn.ChildrenW(path)
	if err != nil {
		return nil, nil, nil, translateErr(err)
	}
	sort.Strings(names)
	return names, toStat(st), bridgeEvents(path, zkEvents), nil
}

func (c *ZKConn) Get(_ context.Context, path string) ([]byte, *Stat, error) {
	data, st, err := c.conn.Get(path)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	return data, toStat(st), nil
}

func (c *ZKConn) GetW(_ context.Context, path string) ([]byte, *Stat, <-chan Event, error) {
	data, st, zkEvents, err := c.conn.GetW(path)
	if err != nil {
		return nil, nil, nil, translateErr(err)
	}
	return data, toStat(st), bridgeEvents(path, zkEvents), nil
}

func (c *ZKConn) Set(_ context.Context, path string, data []byte, version int32) (*Stat, error) {
	st, err := c.conn.Set(path, data, version)
	if err != nil {
		return nil, translateErr(err)
	}
	return toStat(st), nil
}

func (c *ZKConn) Delete(_ context.Context, path string, version int32) error {
	return translateErr(c.conn.Delete(path, version))
}

func (c *ZKConn) Exists(_ context.Context, path string) (bool, *Stat, error) {
	ok, st, err := c.conn.Exists(path)
	if err != nil {
		return false, nil, translateErr(err)
	}
	return ok, toStat(st), nil
}

func (c *ZKConn) Multi(_ context.Context, ops ...Op) error {
	reqs := make([]interface{}, 0, len(ops))
	for _, op := range ops {
		reqs = append(reqs, &zk.DeleteRequest{Path: op.Path, Version: op.Version})
	}
	_, err := c.conn.Multi(reqs...)
	return translateErr(err)
}

func toStat(st *zk.Stat) *Stat {
	if st == nil {
		return nil
	}
	return &Stat{Version: st.Version, NumChildren: st.NumChildren, CreationTxID: st.Czxid}
}

// bridgeEvents translates a single raw zk.Event into our Event type. A
// one-shot watch delivers exactly one message, so a small relay goroutine
// writing into a one-slot buffered channel is enough; it exits after forwarding (or on a closed
// source channel, which zk uses to signal disconnect).
func bridgeEvents(path string, src <-chan zk.Event) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		ev, ok := <-src
		if !ok {
			return
		}
		out <- Event{Type: fromZKEventType(ev.Type), Path: path, SessionLost: ev.State == zk.StateExpired}
	}()
	return out
}

func fromZKEventType(t zk.EventType) EventType {
	switch t {
	case zk.EventNodeChildrenChanged:
		return EventChildrenChanged
	case zk.EventNodeDataChanged:
		return EventDataChanged
	case zk.EventNodeDeleted:
		return EventNodeDeleted
	default:
		return EventSession
	}
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrNoNode):
		return ErrNoNode
	case errors.Is(err, zk.ErrNodeExists):
		return ErrNodeExists
	case errors.Is(err, zk.ErrBadVersion):
		return ErrVersionMismatch
	case errors.Is(err, zk.ErrSessionExpired):
		return ErrSessionExpired
	default:
		return err
	}
}
