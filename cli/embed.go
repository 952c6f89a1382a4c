package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ocppnet/ocppnet/node"
	"github.com/ocppnet/ocppnet/version"
	"github.com/ocppnet/ocppnet/ws"
)

// A minimal interface to the underlying Runner for embedding a networking node into your own Go HTTP application.
type Embedded struct {
	n *node.Node
	r *Runner
}

// Node returns the running node (to originate requests or register handlers)
func (e *Embedded) Node() *node.Node {
	return e.n
}

// WebSocketHandler returns an HTTP handler accepting neighbour connections at <ws path>/<node id>.
func (e *Embedded) WebSocketHandler() http.Handler {
	return ws.Handler(e.n, &e.r.config.Protocol, &e.r.config.WS, e.r.log)
}

// MetricsHandler returns an HTTP handler exposing Prometheus metrics.
func (e *Embedded) MetricsHandler() http.Handler {
	return e.r.metrics.Handler()
}

// Shutdown stops the node and its transports gracefully.
func (e *Embedded) Shutdown(ctx context.Context) error {
	if e.r.cancelUplink != nil {
		e.r.cancelUplink()
	}

	for _, shutdownable := range e.r.shutdownables {
		if err := shutdownable.Shutdown(ctx); err != nil {
			return err
		}
	}

	if err := e.n.Shutdown(ctx); err != nil {
		return err
	}

	if e.r.natsConn != nil {
		e.r.natsConn.Close()
	}

	return e.r.enats.Shutdown()
}

// Embed starts the node without setting up HTTP servers, signals, etc.
// You can use it to embed a networking node into your own Go HTTP application.
func (r *Runner) Embed() (*Embedded, error) {
	r.announceDebugMode()

	r.log.Info(fmt.Sprintf("Starting embedded %s %s", r.name, version.Version()))

	appNode, err := r.runNode()
	if err != nil {
		return nil, err
	}

	if r.config.WS.UpstreamEnabled() {
		r.startUpstream(appNode)
	}

	return &Embedded{n: appNode, r: r}, nil
}
