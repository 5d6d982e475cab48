package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"

	"github.com/viyadb/viyadb/pkg/engine"
	"github.com/viyadb/viyadb/pkg/httpx"
	"github.com/viyadb/viyadb/pkg/loader"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/schema"
	"github.com/viyadb/viyadb/pkg/verr"
)

type server struct {
	engine *engine.Engine
	hub    *activityHub
}

func (s *server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var d schema.TableDescriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "malformed table descriptor: "+err.Error())
		return
	}
	if err := s.engine.CreateTable(d); err != nil {
		httpx.RespondError(w, statusFor(err), err)
		return
	}
	s.hub.Notify(map[string]any{"type": "table_created", "table": d.Name})
	httpx.RespondJSON(w, http.StatusCreated, map[string]string{"status": "created", "table": d.Name})
}

func (s *server) handleDropTable(w http.ResponseWriter, r *http.Request, table string) {
	if err := s.engine.DropTable(table); err != nil {
		httpx.RespondError(w, statusFor(err), err)
		return
	}
	s.hub.Notify(map[string]any{"type": "table_dropped", "table": table})
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "dropped", "table": table})
}

func (s *server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var d loader.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "malformed load descriptor: "+err.Error())
		return
	}

	f, err := os.Open(d.File)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, verr.IOf(err, "opening %q", d.File))
		return
	}
	defer f.Close()

	stats, err := s.engine.Load(d, f)
	if err != nil {
		httpx.RespondError(w, statusFor(err), err)
		return
	}

	s.hub.Notify(map[string]any{
		"type":        "load_complete",
		"table":       d.Table,
		"new_recs":    stats.NewRecs,
		"failed_recs": stats.FailedRecs,
	})
	httpx.RespondJSON(w, http.StatusOK, map[string]any{
		"new_recs":    stats.NewRecs,
		"failed_recs": stats.FailedRecs,
	})
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var d query.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "malformed query descriptor: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.engine.Query(d, &buf); err != nil {
		httpx.RespondError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// statusFor maps an error kind to an HTTP status, per spec's "4xx with
// the message body" error propagation rule.
func statusFor(err error) int {
	switch {
	case verr.IsKind(err, verr.Config), verr.IsKind(err, verr.Parse):
		return http.StatusBadRequest
	case verr.IsKind(err, verr.Lookup):
		return http.StatusNotFound
	case verr.IsKind(err, verr.IO):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
