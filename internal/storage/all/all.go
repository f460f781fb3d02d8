// Package all registers every bundled storage backend. Commands that
// want backend selection by config blank-import this package once.
package all

import (
	// Backend factories register themselves in init().
	_ "tabsynth/internal/storage/mssql"
	_ "tabsynth/internal/storage/postgres"
	_ "tabsynth/internal/storage/sqlite"

	// The mssql package does not import a driver; register the
	// "sqlserver" driver here.
	_ "github.com/microsoft/go-mssqldb"
)
