//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// cgo driver with the sqlite-vec extension auto-loaded, for callers
// that want KNN pushed into SQLite instead of in-process scans.
const driverName = "sqlite3"

func init() {
	vec.Auto()
}
