package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/viyadb/viyadb/pkg/config"
	"github.com/viyadb/viyadb/pkg/engine"
)

// getPort reads VIYADB_PORT, falling back to config.DefaultPort.
func getPort() string {
	if p := os.Getenv("VIYADB_PORT"); p != "" {
		return p
	}
	return config.DefaultPort
}

func main() {
	log.Println("starting viyadb-server...")

	srv := &server{
		engine: engine.New(),
		hub:    newActivityHub(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.hub.Run(ctx)
	}()

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/tables", srv.handleCreateTable).Methods("POST")
	api.HandleFunc("/tables/{name}", func(w http.ResponseWriter, r *http.Request) {
		srv.handleDropTable(w, r, mux.Vars(r)["name"])
	}).Methods("DELETE")
	api.HandleFunc("/load", srv.handleLoad).Methods("POST")
	api.HandleFunc("/query", srv.handleQuery).Methods("POST")
	api.HandleFunc("/tail", handleTail(srv.hub)).Methods("GET")

	httpServer := &http.Server{
		Addr:         ":" + getPort(),
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("listening on http://localhost:%s", getPort())
		log.Println("routes:")
		log.Println("  POST   /v1/tables        - create a table")
		log.Println("  DELETE /v1/tables/{name} - drop a table")
		log.Println("  POST   /v1/load          - load a TSV file")
		log.Println("  POST   /v1/query         - run a query")
		log.Println("  GET    /v1/tail          - live-tail table activity")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown warning: %v", err)
	}

	wg.Wait()
	log.Println("viyadb-server exited cleanly")
}
