package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/joomcode/errorx"
	"golang.org/x/net/netutil"
)

// HTTPServer is wrapper over http.Server
type HTTPServer struct {
	server   *http.Server
	addr     string
	secured  bool
	shutdown bool
	started  bool
	maxConn  int
	mu       sync.Mutex
	log      *slog.Logger

	Mux *http.ServeMux
}

// NewServer builds HTTPServer from config params
func NewServer(c *Config, l *slog.Logger) (*HTTPServer, error) {
	mux := http.NewServeMux()
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	server := &http.Server{Addr: addr, Handler: mux, ErrorLog: slog.NewLogLogger(l.Handler(), slog.LevelDebug)}

	secured := c.SSL.Available()

	if secured {
		cer, err := tls.LoadX509KeyPair(c.SSL.CertPath, c.SSL.KeyPath)
		if err != nil {
			return nil, errorx.Decorate(err, "failed to load SSL certificate")
		}

		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cer}, MinVersion: tls.VersionTLS12}
	}

	if c.HealthPath != "" {
		mux.HandleFunc(c.HealthPath, HealthHandler)
	}

	return &HTTPServer{
		server:  server,
		addr:    addr,
		Mux:     mux,
		secured: secured,
		maxConn: c.MaxConn,
		log:     l.With("context", "http"),
	}, nil
}

// Start server
func (s *HTTPServer) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	s.started = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	if s.maxConn > 0 {
		ln = netutil.LimitListener(ln, s.maxConn)
	}

	s.log.Info("listening", "address", s.Address())

	if s.secured {
		err = s.server.ServeTLS(ln, "", "")
	} else {
		err = s.server.Serve(ln)
	}

	if errors.Is(err, http.ErrServerClosed) && s.Stopped() {
		return nil
	}

	return err
}

// StartAndAnnounce runs the server in background and logs failures
func (s *HTTPServer) StartAndAnnounce(name string) {
	go func() {
		if err := s.Start(); err != nil {
			s.log.Error("server failed", "server", name, "error", err)
		}
	}()
}

// Shutdown shuts the server down gracefully
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}

	s.shutdown = true
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// Stopped returns true iff the server has been shut down
func (s *HTTPServer) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shutdown
}

// Address returns the server base URL
func (s *HTTPServer) Address() string {
	scheme := "http://"

	if s.secured {
		scheme = "https://"
	}

	return scheme + s.addr
}
