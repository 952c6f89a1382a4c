// Package cli builds and runs a networking node process from CLI options and configuration files.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joomcode/errorx"
	"github.com/nats-io/nats.go"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/config"
	"github.com/ocppnet/ocppnet/correlation"
	"github.com/ocppnet/ocppnet/enats"
	"github.com/ocppnet/ocppnet/logger"
	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/natslink"
	"github.com/ocppnet/ocppnet/node"
	"github.com/ocppnet/ocppnet/server"
	"github.com/ocppnet/ocppnet/signing"
	"github.com/ocppnet/ocppnet/utils"
	"github.com/ocppnet/ocppnet/version"
	"github.com/ocppnet/ocppnet/ws"
	"go.uber.org/automaxprocs/maxprocs"
)

// Shutdownable is implemented by the components stopped on process exit
type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// Runner bootstraps a networking node and its transports
type Runner struct {
	name   string
	config *config.Config
	log    *slog.Logger

	handlers     map[string]node.Handler
	nodeSetups   []func(n *node.Node) error
	errChan      chan error
	cancelUplink context.CancelFunc

	metrics       *metrics.Metrics
	server        *server.HTTPServer
	enats         *enats.Service
	natsConn      *nats.Conn
	shutdownables []Shutdownable
}

// NewRunner returns a new Runner structure
func NewRunner(c *config.Config, opts []Option) (*Runner, error) {
	r := &Runner{
		name:     "ocppnet",
		config:   c,
		handlers: make(map[string]node.Handler),
		errChan:  make(chan error),
	}

	for _, opt := range opts {
		err := opt(r)
		if err != nil {
			return nil, err
		}
	}

	handler, err := logger.InitLogger(&c.Log)
	if err != nil {
		return nil, errorx.Decorate(err, "failed to initialize default logger")
	}

	r.log = slog.New(handler)
	r.metrics = metrics.New()

	return r, nil
}

// Run starts the node, its transports and blocks until it stops
func (r *Runner) Run() error {
	r.announceDebugMode()
	r.log.Info(fmt.Sprintf("Starting %s %s (pid: %d)", r.name, version.Version(), os.Getpid()))

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		r.log.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		r.log.Warn("failed to adjust GOMAXPROCS", "error", err)
	}

	appNode, err := r.runNode()
	if err != nil {
		return err
	}

	r.log.Info("node started", "id", string(appNode.ID()), "mode", appNode.Mode().String())

	wsServer, err := server.NewServer(&r.config.Server, r.log)
	if err != nil {
		return errorx.Decorate(err, "failed to initialize HTTP server")
	}
	r.server = wsServer

	wsPath := r.config.WS.Path + "/"
	wsServer.Mux.Handle(wsPath, ws.Handler(appNode, &r.config.Protocol, &r.config.WS, r.log))
	r.log.Info(fmt.Sprintf("Handle WebSocket connections at %s%s<node id>", wsServer.Address(), wsPath))

	if r.config.Server.HealthPath != "" {
		r.log.Info(fmt.Sprintf("Handle health requests at %s%s", wsServer.Address(), r.config.Server.HealthPath))
	}

	r.startMetrics()

	r.setupSignalHandlers(appNode)

	go func() {
		if err := wsServer.Start(); err != nil && !wsServer.Stopped() {
			r.errChan <- errorx.Decorate(err, "HTTP server failed")
		}
	}()

	if r.config.WS.UpstreamEnabled() {
		r.startUpstream(appNode)
	}

	// Wait for an error (or none)
	return <-r.errChan
}

func (r *Runner) runNode() (*node.Node, error) {
	policy, err := r.config.Signing.BuildPolicy()
	if err != nil {
		return nil, errorx.Decorate(err, "failed to configure signing")
	}

	r.log.Info("message signing", "policy", r.config.Signing.Policy, "sign_outbound", r.config.Signing.SignOutbound, "require_signatures", r.config.Signing.RequireSignatures)

	engine := correlation.NewEngine(
		r.config.Correlation,
		correlation.WithInstrumenter(r.metrics),
		correlation.WithLogger(r.log),
	)

	appNode, err := node.NewNode(
		&r.config.Node,
		&r.config.Protocol,
		node.WithPipeline(signing.NewPipeline(policy, &r.config.Signing)),
		node.WithEngine(engine),
		node.WithInstrumenter(r.metrics),
		node.WithLogger(r.log),
	)
	if err != nil {
		return nil, errorx.Decorate(err, "failed to initialize node")
	}

	for action, h := range r.handlers {
		appNode.Handle(action, h)
	}

	for _, setup := range r.nodeSetups {
		if err := setup(appNode); err != nil {
			return nil, err
		}
	}

	if r.config.EmbeddedNats.Enabled {
		service, err := r.startEmbeddedNats()
		if err != nil {
			return nil, err
		}

		r.enats = service
	}

	if r.config.NATS.Enabled {
		listener, err := r.startNATSLinks(appNode)
		if err != nil {
			return nil, err
		}

		r.shutdownables = append(r.shutdownables, listener)
	}

	return appNode, nil
}

func (r *Runner) startEmbeddedNats() (*enats.Service, error) {
	service := enats.NewService(&r.config.EmbeddedNats, r.log)

	if err := service.Start(); err != nil {
		return nil, errorx.Decorate(err, "failed to start embedded NATS server")
	}

	desc := service.Description()

	if desc != "" {
		r.log.Info(fmt.Sprintf("Embedded NATS server started: %s", desc))
	}

	// Links use the embedded server unless an external one is configured
	if r.config.NATS.Servers == nats.DefaultURL {
		r.config.NATS.Servers = service.ClientURL()
	}

	return service, nil
}

func (r *Runner) startNATSLinks(appNode *node.Node) (*natslink.Listener, error) {
	conn, err := natslink.Connect(&r.config.NATS, r.log)
	if err != nil {
		return nil, errorx.Decorate(err, "failed to connect to NATS")
	}

	r.natsConn = conn

	neighbours := make([]addressing.NodeID, 0, len(r.config.NATS.Neighbours))

	for _, raw := range r.config.NATS.Neighbours {
		id, err := addressing.ParseNodeID(raw)
		if err != nil {
			return nil, errorx.Decorate(err, "invalid NATS neighbour")
		}

		neighbours = append(neighbours, id)
	}

	listener := natslink.NewListener(appNode, conn, r.config.NATS.Prefix, appNode.ID(), r.log)

	if err := listener.Start(neighbours); err != nil {
		return nil, err
	}

	return listener, nil
}

func (r *Runner) startUpstream(appNode *node.Node) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelUplink = cancel

	upstream := ws.NewUpstream(appNode, appNode.ID(), &r.config.Protocol, &r.config.WS, r.log)

	r.log.Info(fmt.Sprintf("Connecting to upstream %s at %s", r.config.WS.UpstreamID, r.config.WS.UpstreamURL))

	go func() {
		if err := upstream.Run(ctx); err != nil {
			r.log.Error("upstream failed", "error", err)
		}
	}()
}

func (r *Runner) startMetrics() {
	if r.config.Metrics.Log {
		printer := metrics.NewPrinter(r.metrics, &r.config.Metrics, r.log)

		ctx, cancel := context.WithCancel(context.Background())
		r.shutdownables = append(r.shutdownables, shutdownFunc(func(context.Context) error {
			cancel()
			return nil
		}))

		go printer.Run(ctx)
	}

	if !r.config.Metrics.HTTPEnabled() {
		return
	}

	if r.config.Metrics.Port == 0 || r.config.Metrics.Port == r.config.Server.Port {
		r.server.Mux.Handle(r.config.Metrics.HTTP, r.metrics.Handler())
		r.log.Info(fmt.Sprintf("Serve metrics at %s%s", r.server.Address(), r.config.Metrics.HTTP))
		return
	}

	metricsServer, err := server.NewServer(
		&server.Config{Host: r.config.Metrics.Host, Port: r.config.Metrics.Port},
		r.log.With("server", "metrics"),
	)
	if err != nil {
		r.log.Error("failed to initialize metrics server", "error", err)
		return
	}

	metricsServer.Mux.Handle(r.config.Metrics.HTTP, r.metrics.Handler())
	r.shutdownables = append(r.shutdownables, metricsServer)

	r.log.Info(fmt.Sprintf("Serve metrics at %s%s", metricsServer.Address(), r.config.Metrics.HTTP))

	go func() {
		if err := metricsServer.Start(); err != nil && !metricsServer.Stopped() {
			r.errChan <- errorx.Decorate(err, "metrics server failed")
		}
	}()
}

func (r *Runner) setupSignalHandlers(appNode *node.Node) {
	s := utils.NewGracefulSignals(time.Duration(r.config.ShutdownTimeout)*time.Second, r.log)

	s.HandleForceTerminate(func() {
		r.log.Warn("immediate termination requested. Stopped")
		r.errChan <- nil
	})

	s.Handle("upstream", func(context.Context) error {
		if r.cancelUplink != nil {
			r.cancelUplink()
		}
		return nil
	})

	s.Handle("server", func(ctx context.Context) error {
		return r.server.Shutdown(ctx)
	})

	s.Handle("shutdownables", func(ctx context.Context) error {
		for _, instance := range r.shutdownables {
			if err := instance.Shutdown(ctx); err != nil {
				r.log.Warn("failed to shutdown component", "error", err)
			}
		}
		return nil
	})

	s.Handle("node", appNode.Shutdown)

	s.Handle("nats", func(context.Context) error {
		if r.natsConn != nil {
			r.natsConn.Close()
		}

		return r.enats.Shutdown()
	})

	s.Handle("exit", func(context.Context) error {
		r.log.Info("shutdown complete")
		r.errChan <- nil
		return nil
	})

	s.Listen()
}

func (r *Runner) announceDebugMode() {
	if r.config.Log.Debug {
		r.log.Debug("🔧 🔧 🔧 Debug mode is on 🔧 🔧 🔧")
	}
}

type shutdownFunc func(ctx context.Context) error

func (fn shutdownFunc) Shutdown(ctx context.Context) error {
	return fn(ctx)
}
