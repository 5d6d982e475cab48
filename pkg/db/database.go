// Package db owns a database's set of tables: their creation, lookup,
// and teardown, plus the shared per-database write/read pools handed to
// each table.
package db

import (
	"context"
	"log"
	"sync"

	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/store"
	"github.com/viyadb/viyadb/pkg/upsert"
	"github.com/viyadb/viyadb/pkg/verr"
	"github.com/viyadb/viyadb/pkg/watch"
)

// Services bundles the facilities a table borrows from its owning
// database, so Table never needs a back-pointer to Database: this
// avoids the Table<->Database cycle by passing a narrow handle down
// instead of a reference up.
type Services struct {
	Pools *watch.Pools
}

// Table is one live table: its validated schema, backing store, upsert
// context, and (if configured) directory watcher.
type Table struct {
	Schema *schema.Table
	Store  *store.Store
	Upsert *upsert.Context

	services Services
	cancel   context.CancelFunc
}

// WritePool returns this table's write pool (serializes ingest).
func (t *Table) WritePool() *watch.Pool { return t.services.Pools.Write }

// ReadPool returns this table's read pool (runs queries concurrently).
func (t *Table) ReadPool() *watch.Pool { return t.services.Pools.Read }

// stopWatch tears down the table's directory watcher, if any.
func (t *Table) stopWatch() {
	if t.cancel != nil {
		t.cancel()
	}
}

// Database owns a set of tables under one shared/exclusive lock:
// exclusive for create/drop, shared for lookup, matching spec's
// shared-resource policy for the tables map.
type Database struct {
	mu     sync.RWMutex
	tables map[string]*Table
	pools  *watch.Pools
}

// New builds a database backed by one write pool and one read pool,
// shared by every table it owns.
func New() *Database {
	return &Database{
		tables: map[string]*Table{},
		pools:  watch.NewPools(config.DefaultWritePoolSize, config.DefaultReadPoolSize),
	}
}

// CreateTable validates d, builds the table's store and upsert context,
// starts its directory watcher if configured, and registers it. Creating
// a table that already exists is a config error.
func (db *Database) CreateTable(d schema.TableDescriptor, onFileLoaded func(t *Table, path string)) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[d.Name]; exists {
		return nil, verr.Configf("table %q already exists", d.Name)
	}

	sch, err := schema.Build(d)
	if err != nil {
		return nil, err
	}

	st := store.New(sch)
	tbl := &Table{
		Schema:   sch,
		Store:    st,
		Upsert:   upsert.New(sch, st, nil),
		services: Services{Pools: db.pools},
	}

	if d.Watch != nil && d.Watch.Directory != "" {
		ctx, cancel := context.WithCancel(context.Background())
		w, err := watch.New(d.Watch.Directory, d.Watch.Extensions, func(path string) {
			tbl.WritePool().Submit(func() {
				onFileLoaded(tbl, path)
			})
		})
		if err != nil {
			cancel()
			return nil, verr.IOf(err, "table %q: starting directory watch on %q", d.Name, d.Watch.Directory)
		}
		tbl.cancel = cancel
		go w.Run(ctx)
		log.Printf("table %q: watching %q for new files", d.Name, d.Watch.Directory)
	}

	db.tables[d.Name] = tbl
	return tbl, nil
}

// Table looks up a live table by name.
func (db *Database) Table(name string) (*Table, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	return t, ok
}

// DropTable tears down a table's watcher and removes it from the
// registry. Its store, dictionaries, and upsert context become eligible
// for garbage collection once no in-flight reader still holds a
// reference to them.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tables[name]
	if !ok {
		return verr.Lookupf("table %q does not exist", name)
	}
	t.stopWatch()
	delete(db.tables, name)
	return nil
}

// TableNames lists every live table, for the "show tables" query.
func (db *Database) TableNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	return names
}

// Pools returns the database's shared write/read pools, for the "show
// workers" query.
func (db *Database) Pools() *watch.Pools { return db.pools }
