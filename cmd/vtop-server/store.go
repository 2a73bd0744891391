package main

import (
	"context"
	"log/slog"
	"strings"
	"vtop-backend/lib/sqliteutil"
	vtopservice "vtop-backend/services/vtop"
	"vtop-backend/services/vtop/db"
	"vtop-backend/services/vtop/pgstore"
)

// OpenRecordStore picks the record backend from the shape of the
// database location.
func OpenRecordStore(ctx context.Context, location string) (vtopservice.RecordStore, func(), error) {
	if location == "" {
		location = "vtop.db"
	}

	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		store, err := pgstore.Open(ctx, location)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing records in postgres")
		return store, store.Close, nil
	}

	database, err := sqliteutil.OpenDB(db.Schema, location)
	if err != nil {
		return nil, nil, err
	}
	if sqliteutil.IsRemote(location) {
		slog.Info("storing records in libsql")
	} else {
		slog.Info("storing records in sqlite", "path", location)
	}
	return vtopservice.NewSqlStore(database), func() {
		database.Close()
	}, nil
}
