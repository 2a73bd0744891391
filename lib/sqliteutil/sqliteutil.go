package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var remoteSchemes = []string{"libsql://", "http://", "https://", "ws://", "wss://"}

// IsRemote reports whether the location points at a libsql server instead
// of a local sqlite file.
func IsRemote(location string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(location, scheme) {
			return true
		}
	}
	return false
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens a local sqlite database (a file path or ":memory:") or a
// remote libsql database (a libsql:// or http(s):// url, an auth token
// can be given with ?authToken=...) and applies the schema to it.
func OpenDB(schema, location string) (*sql.DB, error) {
	if IsRemote(location) {
		db, err := sql.Open("libsql", location)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return migrate(db, schema)
	}

	if location != ":memory:" {
		err := os.MkdirAll(filepath.Dir(location), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", location)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	// it also keeps a single connection alive for ":memory:" databases.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if location != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return migrate(db, schema)
}

func migrate(db *sql.DB, schema string) (*sql.DB, error) {
	if schema == "" {
		return db, nil
	}
	_, err := db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
