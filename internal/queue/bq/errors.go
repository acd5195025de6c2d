package bq

import (
	"errors"
	"fmt"

	"github.com/rzbill/zkq/internal/coord"
)

// ErrQueueFull is returned by Offer when a capacity bound is configured
// and the directory's actual child count has reached it.
var ErrQueueFull = errors.New("bq: queue full")

// ErrNoSuchElement is returned by Remove when the queue is empty.
var ErrNoSuchElement = errors.New("bq: no such element")

// infraErr wraps a non-"no node" coordination-service failure so callers
// can still unwrap to the original error while the queue package exposes
// one shape for "something is wrong with the coordination service".
func infraErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("bq: %s: infrastructure error: %w", op, err)
}

// isNoNode reports whether err is (or wraps) coord.ErrNoNode.
func isNoNode(err error) bool {
	return errors.Is(err, coord.ErrNoNode)
}
