// Package engine implements the external Query/Load/CreateTable
// boundary: it resolves a query or load descriptor against the owning
// database's tables and renders results as the row-output stream
// described by the core's wire format.
package engine

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viyadb/viyadb/pkg/db"
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/exec"
	"github.com/viyadb/viyadb/pkg/loader"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/verr"
)

func nowMicros() int64 { return time.Now().UnixMicro() }

// Engine wires one database to the Query/Load/CreateTable boundary.
type Engine struct {
	db *db.Database
}

// New builds an engine over an empty database.
func New() *Engine {
	return &Engine{db: db.New()}
}

// CreateTable validates and registers a new table, wiring its directory
// watcher (if configured) to automatically load files dropped into it.
func (e *Engine) CreateTable(d schema.TableDescriptor) error {
	_, err := e.db.CreateTable(d, func(tbl *db.Table, path string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = loader.Load(tbl.Upsert, tbl.Schema, loader.Descriptor{
			Type:  "file",
			Table: tbl.Schema.Name,
			File:  path,
		}, f, nowMicros())
	})
	return err
}

// DropTable tears down a table.
func (e *Engine) DropTable(name string) error {
	return e.db.DropTable(name)
}

// Load runs a load descriptor against its target table's write pool,
// serializing it with any watcher-triggered loads and other explicit
// Load calls on the same table.
func (e *Engine) Load(d loader.Descriptor, r io.Reader) (loader.Stats, error) {
	tbl, ok := e.db.Table(d.Table)
	if !ok {
		return loader.Stats{}, verr.Lookupf("load: unknown table %q", d.Table)
	}

	var stats loader.Stats
	var loadErr error
	tbl.WritePool().Run(func() {
		stats, loadErr = loader.Load(tbl.Upsert, tbl.Schema, d, r, nowMicros())
	})
	return stats, loadErr
}

// Query runs a query descriptor, using the target table's read pool to
// bound concurrent scans, and renders the result as the row-output
// stream.
func (e *Engine) Query(d query.Descriptor, w io.Writer) error {
	if d.Type == "show" {
		return e.runShow(d, w)
	}

	tbl, ok := e.db.Table(d.Table)
	if !ok {
		return verr.Lookupf("query: unknown table %q", d.Table)
	}

	plan, err := query.Build(d, tbl.Schema, dictsOf(tbl))
	if err != nil {
		return err
	}

	var res *exec.Result
	var runErr error
	tbl.ReadPool().Run(func() {
		res, runErr = exec.Run(plan, tbl.Store, dictsOf(tbl))
	})
	if runErr != nil {
		return runErr
	}

	writeRowStream(w, plan, res)
	return nil
}

func (e *Engine) runShow(d query.Descriptor, w io.Writer) error {
	switch d.What {
	case "tables":
		for _, name := range e.db.TableNames() {
			io.WriteString(w, name)
			io.WriteString(w, "\n")
		}
		return nil
	case "workers":
		pools := e.db.Pools()
		io.WriteString(w, "write\t"+strconv.Itoa(pools.Write.Size())+"\n")
		io.WriteString(w, "read\t"+strconv.Itoa(pools.Read.Size())+"\n")
		return nil
	default:
		return verr.Configf("show: unsupported what %q", d.What)
	}
}

// dictsOf returns a table's per-dimension dictionaries, indexed by
// dimension index (nil for non-string dimensions).
func dictsOf(tbl *db.Table) []*dict.Dictionary {
	out := make([]*dict.Dictionary, len(tbl.Schema.Dimensions))
	for i := range tbl.Schema.Dimensions {
		out[i] = tbl.Upsert.Dictionary(i)
	}
	return out
}

// writeRowStream renders a result as chunked TSV: TAB-separated fields,
// LF-separated rows. search and show-columns results are a single
// logical column and are written LF-separated with no header, matching
// spec's output row stream rule.
func writeRowStream(w io.Writer, p *query.Plan, res *exec.Result) {
	if p.Header && len(res.Columns) > 0 {
		io.WriteString(w, strings.Join(res.Columns, "\t"))
		io.WriteString(w, "\n")
	}
	for _, row := range res.Rows {
		io.WriteString(w, strings.Join(row, "\t"))
		io.WriteString(w, "\n")
	}
}
