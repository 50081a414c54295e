// Copyright (c) 2024-2025 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// portToLocalHostAddr prepends a default host of 127.0.0.1 when the provided
// address is solely a port number.
func portToLocalHostAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		addr = net.JoinHostPort("127.0.0.1", addr)
	}
	return addr
}

// validateProfileAddr ensures the provided address is of the form "host:port"
// and that the port is between 1024 and 65535.
func validateProfileAddr(addr string) error {
	// Ensure the address is valid host:port syntax.
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	// Ensure the port is in range.
	if port, _ := strconv.Atoi(portStr); port < 1024 || port > 65535 {
		str := "address %q: port must be between 1024 and 65535"
		return fmt.Errorf(str, addr)
	}

	return nil
}

// newProfileMux returns a handler serving the pprof profiling endpoints along
// with the metrics gathered by the passed gatherer.
func newProfileMux(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: promLogger{},
	}))
	mux.Handle("/", http.RedirectHandler("/debug/pprof/", http.StatusSeeOther))
	return mux
}

// promLogger forwards errors of the metrics handler to the daemon log.
type promLogger struct{}

// Println is part of the promhttp.Logger interface.
func (promLogger) Println(v ...interface{}) {
	chndLog.Warn(append([]interface{}{"Metrics handler: "}, v...)...)
}

// profileServer provides facilities for starting and stopping an HTTP server
// that serves the pprof profiling endpoints and the chain metrics.
type profileServer struct {
	wg       sync.WaitGroup
	mtx      sync.Mutex
	server   *http.Server
	listener string
}

// Start binds a listener to the provided address and launches an HTTP server
// that handles profiling and metrics endpoints in the background using that
// listener.  An error is returned when the listener fails to bind.
//
// It has no effect when the server is already running, so it may be called
// multiple times without error.
//
// It is the caller's responsibility to call the Stop method to shutdown the
// server.
func (s *profileServer) Start(listenAddr string, gatherer prometheus.Gatherer) error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is already running.
	if s.server != nil {
		return nil
	}

	listenAddr = portToLocalHostAddr(listenAddr)
	if err := validateProfileAddr(listenAddr); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", listenAddr, err)
	}
	s.listener = listener.Addr().String()

	s.server = &http.Server{
		Addr:              listenAddr,
		Handler:           newProfileMux(gatherer),
		ReadHeaderTimeout: time.Second * 3,
	}
	chndLog.Infof("Profiling and metrics server listening on %s",
		listener.Addr())
	s.wg.Add(1)
	go func(httpServer *http.Server) {
		defer s.wg.Done()

		err := httpServer.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			chndLog.Errorf("Profiling server listening on %s exited with "+
				"unexpected error: %v", listener.Addr(), err)
		}
	}(s.server)

	return nil
}

// Stop immediately closes the active listener and any connections to the
// profile server.
//
// It has no effect when the server is not running, so it may be called multiple
// times without error.
func (s *profileServer) Stop() error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is not running.
	if s.server == nil {
		return nil
	}

	err := s.server.Close()
	s.server = nil
	s.listener = ""
	s.wg.Wait()
	if err != nil {
		chndLog.Errorf("Profiling server stopped with unexpected error: %v",
			err)
		return err
	}

	chndLog.Info("Profiling server stopped")
	return nil
}

// Listener returns the address the profile server is listening on or an empty
// string when it is not running.
func (s *profileServer) Listener() string {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	return s.listener
}
