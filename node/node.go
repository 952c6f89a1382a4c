// Package node implements an OCPP networking node: it accepts frames from
// neighbour connections, dispatches requests addressed to it to action handlers,
// correlates replies to its own requests and relays everything else.
package node

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/correlation"
	"github.com/ocppnet/ocppnet/metrics"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
	"github.com/ocppnet/ocppnet/signing"
	"github.com/ocppnet/ocppnet/utils"
)

// Connection is a link to a neighbour node (a transport session)
type Connection = router.Connection

// Node represents the whole application
type Node struct {
	id   addressing.NodeID
	mode ocpp.NetworkingMode
	conf *Config

	encoder  ocpp.Encoder
	pipeline *signing.Pipeline
	engine   *correlation.Engine
	table    *router.Table
	handlers *Registry
	hooks    *Hooks
	pool     *utils.GoPool

	writeTimeout time.Duration

	metrics metrics.Instrumenter
	log     *slog.Logger
}

type Option func(*Node)

func WithPipeline(p *signing.Pipeline) Option {
	return func(n *Node) {
		n.pipeline = p
	}
}

func WithEngine(e *correlation.Engine) Option {
	return func(n *Node) {
		n.engine = e
	}
}

func WithTable(t *router.Table) Option {
	return func(n *Node) {
		n.table = t
	}
}

func WithInstrumenter(i metrics.Instrumenter) Option {
	return func(n *Node) {
		n.metrics = i
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.log = l
	}
}

// NewNode builds a node from its configuration
func NewNode(c *Config, protocol *ocpp.Config, opts ...Option) (*Node, error) {
	id, err := addressing.ParseNodeID(c.ID)

	if err != nil {
		return nil, errorx.Decorate(err, "invalid node id")
	}

	mode, err := protocol.NetworkingMode()

	if err != nil {
		return nil, err
	}

	n := &Node{
		id:           id,
		mode:         mode,
		conf:         c,
		encoder:      ocpp.NewEncoder(protocol),
		handlers:     NewRegistry(),
		writeTimeout: time.Duration(c.WriteTimeout) * time.Second,
		metrics:      metrics.NoopInstrumenter{},
		log:          slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	n.log = n.log.With("context", "node", "node", string(id))
	n.hooks = newHooks(n.log)

	if n.pipeline == nil {
		n.pipeline = signing.NoopPipeline()
	}

	if n.engine == nil {
		n.engine = correlation.NewEngine(
			correlation.NewConfig(),
			correlation.WithInstrumenter(n.metrics),
			correlation.WithLogger(n.log),
		)
	}

	if n.table == nil {
		n.table = router.NewTable()
	}

	for dest, via := range c.Routes {
		if err := n.table.AddRoute(addressing.NodeID(dest), addressing.NodeID(via)); err != nil {
			return nil, err
		}
	}

	if c.DefaultRoute != "" {
		n.table.SetDefaultRoute(addressing.NodeID(c.DefaultRoute))
	}

	n.pool = utils.NewGoPool("handlers", c.HandlerPoolSize)

	return n, nil
}

func (n *Node) ID() addressing.NodeID {
	return n.id
}

func (n *Node) Mode() ocpp.NetworkingMode {
	return n.mode
}

func (n *Node) Table() *router.Table {
	return n.table
}

func (n *Node) Engine() *correlation.Engine {
	return n.engine
}

func (n *Node) Hooks() *Hooks {
	return n.hooks
}

// Handle registers an action handler
func (n *Node) Handle(action string, h Handler) {
	n.handlers.Handle(action, h)
}

// HandleFunc registers an action handler function
func (n *Node) HandleFunc(action string, fn func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error)) {
	n.handlers.HandleFunc(action, fn)
}

func (n *Node) OnRequestSent(o Observer) {
	n.hooks.RequestSent.Add(o)
}

func (n *Node) OnResponseReceived(o Observer) {
	n.hooks.ResponseReceived.Add(o)
}

func (n *Node) OnRequestErrorReceived(o Observer) {
	n.hooks.RequestErrorReceived.Add(o)
}

func (n *Node) OnResponseErrorReceived(o Observer) {
	n.hooks.ResponseErrorReceived.Add(o)
}

func (n *Node) OnRequestReceived(o Observer) {
	n.hooks.RequestReceived.Add(o)
}

func (n *Node) OnForwarded(o Observer) {
	n.hooks.Forwarded.Add(o)
}

// Connect registers a neighbour connection
func (n *Node) Connect(conn Connection) {
	if prev := n.table.Add(conn); prev != nil {
		n.log.Info("neighbour reconnected", "neighbour", string(conn.ID()))
	} else {
		n.log.Info("neighbour connected", "neighbour", string(conn.ID()))
	}

	n.metrics.SetConnections(n.table.Len())
}

// Disconnect unregisters a neighbour connection (unless it has been replaced by a newer one)
func (n *Node) Disconnect(conn Connection) {
	if !n.table.Remove(conn) {
		return
	}

	n.table.Forget(conn.ID())
	n.metrics.SetConnections(n.table.Len())

	n.log.Info("neighbour disconnected", "neighbour", string(conn.ID()))
}

// Shutdown fails all pending requests
func (n *Node) Shutdown(ctx context.Context) error {
	n.log.Info("shutting down", "pending", n.engine.Pending())

	n.engine.Close()

	return nil
}

// write encodes an envelope and sends it to the connection
func (n *Node) write(ctx context.Context, conn Connection, env ocpp.Envelope) error {
	frame, err := n.encoder.Encode(env, ocpp.ModeUnknown)

	if err != nil {
		return err
	}

	if n.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.writeTimeout)
		defer cancel()
	}

	if err := conn.Send(ctx, frame); err != nil {
		return ocpp.TransportError.Wrap(err, "failed to send %s %s to %s", env.Kind, env.RequestID, conn.ID())
	}

	n.metrics.FrameSent(frame.Type.String())

	n.log.Debug("frame sent", "neighbour", string(conn.ID()), "id", string(env.RequestID), "kind", env.Kind.String())

	return nil
}
