//go:build !freebsd || amd64
// +build !freebsd amd64

// Package enats runs an embedded NATS server which networking nodes can use
// to exchange frames without a separately deployed broker.
package enats

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joomcode/errorx"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	serverStartTimeout = 5 * time.Second
)

// Service represents NATS service
type Service struct {
	config *Config
	server *server.Server
	log    *slog.Logger
}

// serverLogger adapts slog to the NATS server logger interface
type serverLogger struct {
	log *slog.Logger
}

func (e *serverLogger) Noticef(format string, v ...interface{}) {
	e.log.Info(fmt.Sprintf(format, v...))
}

func (e *serverLogger) Warnf(format string, v ...interface{}) {
	e.log.Warn(fmt.Sprintf(format, v...))
}

func (e *serverLogger) Fatalf(format string, v ...interface{}) {
	e.log.Error(fmt.Sprintf(format, v...))
}

func (e *serverLogger) Errorf(format string, v ...interface{}) {
	e.log.Error(fmt.Sprintf(format, v...))
}

func (e *serverLogger) Debugf(format string, v ...interface{}) {
	e.log.Debug(fmt.Sprintf(format, v...))
}

func (e *serverLogger) Tracef(format string, v ...interface{}) {
	e.log.Debug(fmt.Sprintf(format, v...))
}

// NewConfig returns defaults for the embedded server
func NewConfig() Config {
	return Config{
		ServiceAddr: nats.DefaultURL,
		ClusterName: "ocppnet-cluster",
	}
}

// NewService returns an instance of NATS service
func NewService(c *Config, l *slog.Logger) *Service {
	return &Service{config: c, log: l.With("context", "enats")}
}

// Start starts the service. Port 0 picks a random free port.
func (s *Service) Start() error {
	host, port, err := parseAddress(s.config.ServiceAddr)
	if err != nil {
		return errorx.Decorate(err, "failed to parse NATS service addr")
	}

	if port == 0 {
		port = server.RANDOM_PORT
	}

	clusterOpts, err := s.getCluster(s.config.ClusterAddr, s.config.ClusterName)
	if err != nil {
		return errorx.Decorate(err, "failed to configure NATS cluster")
	}

	routes, err := s.getRoutes()
	if err != nil {
		return errorx.Decorate(err, "failed to parse routes")
	}

	opts := &server.Options{
		Host:    host,
		Port:    port,
		Debug:   s.config.Debug,
		Trace:   s.config.Trace,
		Cluster: clusterOpts,
		Routes:  routes,
		NoSigs:  true,
	}

	s.server, err = server.NewServer(opts)
	if err != nil {
		return errorx.Decorate(err, "failed to start NATS server")
	}

	if s.config.Debug {
		s.server.SetLogger(&serverLogger{s.log}, s.config.Debug, s.config.Trace)
	}

	go s.server.Start()

	if err := s.WaitReady(); err != nil {
		return err
	}

	s.log.Info("embedded NATS server started", "url", s.ClientURL())

	return nil
}

// WaitReady waits while NATS server is starting
func (s *Service) WaitReady() error {
	if s.server.ReadyForConnections(serverStartTimeout) {
		return nil
	}

	return errorx.TimeoutElapsed.New(
		"failed to start NATS server within %s", serverStartTimeout,
	)
}

// ClientURL returns the URL clients connect to
func (s *Service) ClientURL() string {
	if s.server == nil {
		return ""
	}

	return s.server.ClientURL()
}

func (s *Service) Description() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("url: %s", s.ClientURL()))

	if s.config.ClusterAddr != "" {
		builder.WriteString(fmt.Sprintf(", cluster: %s, cluster_name: %s", s.config.ClusterAddr, s.config.ClusterName))
	}

	if len(s.config.Routes) > 0 {
		builder.WriteString(fmt.Sprintf(", routes: %s", strings.Join(s.config.Routes, ",")))
	}

	return builder.String()
}

// Shutdown shuts the NATS server down
func (s *Service) Shutdown() error {
	if s == nil || s.server == nil {
		return nil
	}

	s.server.Shutdown()
	s.server.WaitForShutdown()
	return nil
}

// getRoutes transforms []string routes to []*url.URL routes
func (s *Service) getRoutes() ([]*url.URL, error) {
	if len(s.config.Routes) == 0 {
		return nil, nil
	}

	routes := make([]*url.URL, len(s.config.Routes))
	for i, r := range s.config.Routes {
		u, err := url.Parse(r)
		if err != nil {
			return nil, errorx.Decorate(err, "error parsing route URL")
		}
		routes[i] = u
	}
	return routes, nil
}

func (s *Service) getCluster(addr string, name string) (opts server.ClusterOpts, err error) {
	if addr == "" || name == "" {
		return
	}

	host, port, err := parseAddress(addr)

	if err != nil {
		err = errorx.Decorate(err, "failed to parse cluster URL")
		return
	}

	opts = server.ClusterOpts{
		Name: name,
		Host: host,
		Port: port,
	}

	return
}

func parseAddress(addr string) (string, int, error) {
	uri, err := url.Parse(addr)
	if err != nil {
		return "", 0, errorx.Decorate(err, "failed to parse URL")
	}

	if uri.Port() == "" {
		return "", 0, errorx.IllegalArgument.New("port cannot be empty")
	}

	port, err := strconv.ParseInt(uri.Port(), 10, 32)
	if err != nil {
		return "", 0, errorx.Decorate(err, "port is not valid")
	}

	return uri.Hostname(), int(port), nil
}
