// Package namespace ensures queue directories exist on the coordination
// service before a base or request/response queue is opened against
// them. It owns no queue semantics; it only guarantees the directory
// node (and a small metadata child) are present, idempotently.
package namespace

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rzbill/zkq/internal/coord"
)

// metaChild is a persistent child of a queue directory holding the
// directory's configured limits. Its name does not begin with "qn-", so
// the base queue's cache and scans ignore it (see the on-wire node
// layout: names not beginning with qn- are not recognized).
const metaChild = ".zkq-meta"

// Meta holds queue-directory metadata and optional overrides.
type Meta struct {
	Name         string `json:"name"`
	CreatedAtMs  int64  `json:"createdAtMs"`
	MaxQueueSize int    `json:"maxQueueSize"`
}

// EnsureQueueDir creates dir (persistent) and its metadata child if
// absent, returning the effective metadata. Idempotent: a second call
// with the same dir returns the existing metadata unchanged.
func EnsureQueueDir(ctx context.Context, conn coord.Conn, dir string, defaultMaxQueueSize int, nowMs int64) (Meta, error) {
	if err := ensurePath(ctx, conn, dir); err != nil {
		return Meta{}, err
	}

	metaPath := dir + "/" + metaChild
	if data, _, err := conn.Get(ctx, metaPath); err == nil {
		var m Meta
		if jerr := json.Unmarshal(data, &m); jerr == nil {
			return m, nil
		}
		// Corrupted metadata falls through to a rewrite below.
	} else if err != coord.ErrNoNode {
		return Meta{}, err
	}

	m := Meta{Name: dir, CreatedAtMs: nowMs, MaxQueueSize: defaultMaxQueueSize}
	body, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if _, err := conn.Create(ctx, metaPath, body, coord.Persistent); err != nil && err != coord.ErrNodeExists {
		return Meta{}, err
	}
	return m, nil
}

// ensurePath creates every missing segment of dir, in order, mirroring
// the original implementation's now-removed "ensureExists" directory
// bootstrap (the retry was dropped from offer itself, but a queue's
// directory still needs to exist once, up front, before any BQ opens
// against it).
func ensurePath(ctx context.Context, conn coord.Conn, dir string) error {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "/" {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(dir, "/"), "/")
	path := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		path += "/" + seg
		exists, _, err := conn.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := conn.Create(ctx, path, nil, coord.Persistent); err != nil && err != coord.ErrNodeExists {
			return err
		}
	}
	return nil
}
