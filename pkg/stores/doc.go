// Package stores provides the persistence layer for execution reports.
//
// Every plan and apply produces a run record with per-step outcomes, so
// past partitioning decisions stay inspectable after the fact. The SQLite
// implementation keeps the history in a single local database file with
// schema migrations embedded in the binary.
//
// # Usage
//
//	store, err := stores.NewSQLiteStore(stores.Config{Path: "carve.db"})
//	if err != nil {
//	    return err
//	}
//	if err := store.Init(ctx); err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//	    return err
//	}
//
//	err = stores.RecordReport(ctx, store, report)
package stores
