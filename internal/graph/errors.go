package graph

import "errors"

// ErrNodeNotFound is returned when a handle does not name a live node.
var ErrNodeNotFound = errors.New("node not found")
