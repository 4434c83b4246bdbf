// Package api is the HTTP surface of a works machine: read-only views of every Mind, an
// endpoint for submitting signed commands, a websocket feed of committed commands and the
// Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/guilledk/telos-works/consensus/conductor"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = pongWait / 2
	// Maximum size of a submitted event.
	maxMessageSize = 1 << 20
)

type Server struct {
	conductor *conductor.Conductor
	router    *mux.Router
	done      chan struct{}
	closeOnce sync.Once
}

// New builds the router. gatherer is exported on /metrics, nil disables the endpoint.
func New(c *conductor.Conductor, gatherer prometheus.Gatherer) *Server {
	s := &Server{conductor: c, router: mux.NewRouter(), done: make(chan struct{})}
	v1 := s.router.PathPrefix("/v1").Subrouter()
	// catch the websocket call before anything else
	v1.Path("/feed").Headers("Upgrade", "websocket").HandlerFunc(s.handleFeed)
	v1.HandleFunc("/events", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/policy", s.handlePolicy).Methods(http.MethodGet)
	v1.HandleFunc("/treasury", s.handleTreasury).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{owner}", s.handleAccount).Methods(http.MethodGet)
	v1.HandleFunc("/sequence/{owner}", s.handleSequence).Methods(http.MethodGet)
	v1.HandleFunc("/proposals", s.handleProposals).Methods(http.MethodGet)
	v1.HandleFunc("/proposals/{name}", s.handleProposal).Methods(http.MethodGet)
	v1.HandleFunc("/proposals/{name}/versions", s.handleVersions).Methods(http.MethodGet)
	v1.HandleFunc("/proposals/{name}/milestones", s.handleMilestones).Methods(http.MethodGet)
	v1.HandleFunc("/proposals/{name}/milestones/{id:[0-9]+}", s.handleMilestone).Methods(http.MethodGet)
	v1.HandleFunc("/ballots", s.handleBallots).Methods(http.MethodGet)
	v1.HandleFunc("/ballots/{name}", s.handleBallot).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return cors.Default().Handler(s.router)
}

// Start serves on addr until terminate is closed. Open feeds are closed on shutdown.
func (s *Server) Start(addr string, terminate chan struct{}, wg *sync.WaitGroup) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	worksmachine.LogCLI(fmt.Sprintf("API listening on %s", ln.Addr()), 4)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			worksmachine.LogCLI(err.Error(), 1)
		}
	}()
	go func() {
		defer wg.Done()
		<-terminate
		s.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			worksmachine.LogCLI(err.Error(), 2)
		}
		worksmachine.LogCLI("API has shut down", 4)
	}()
	return nil
}

// Close ends every open feed. The HTTP listener is left to its owner.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		worksmachine.LogCLI(err.Error(), 2)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		worksmachine.LogCLI(err.Error(), 3)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), apiError{Error: err.Error()})
}

// StatusFor maps an error category to the HTTP status returned to the client.
func StatusFor(err error) int {
	switch worksmachine.Category(err) {
	case worksmachine.ErrValidation:
		return http.StatusBadRequest
	case worksmachine.ErrState:
		return http.StatusConflict
	case worksmachine.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	case worksmachine.ErrNotFound:
		return http.StatusNotFound
	case worksmachine.ErrUnauthorized:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
