//go:build !(sqlite_vec && cgo)

package store

import (
	_ "modernc.org/sqlite"
)

// Pure-Go driver. Vector search runs in-process over JSON embeddings.
const driverName = "sqlite"
