//go:build sqlite_cgo

package cartstore

// Compiled with: CGO_ENABLED=1 go build -tags sqlite_cgo ./...
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
