package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/version"
)

// Handler accepts neighbour connections at <path>/<node id>.
// Each accepted connection is served as a link until it is closed.
func Handler(recv Receiver, protocol *ocpp.Config, config *Config, l *slog.Logger) http.Handler {
	log := l.With("context", "ws")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := NodeIDFromPath(r.URL.Path, config.Path)

		if err != nil {
			log.Debug("invalid node id", "path", r.URL.Path, "error", err)
			http.Error(w, "invalid node id", http.StatusNotFound)
			return
		}

		upgrader := websocket.Upgrader{
			CheckOrigin:       CheckOrigin(config.AllowedOrigins),
			Subprotocols:      protocol.Subprotocols,
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			EnableCompression: config.EnableCompression,
		}

		rheader := map[string][]string{"X-OCPPNet-Version": {version.Version()}}
		wsc, err := upgrader.Upgrade(w, r, rheader)
		if err != nil {
			log.Debug("websocket connection upgrade failed", "error", err)
			return
		}

		if len(websocket.Subprotocols(r)) > 0 && wsc.Subprotocol() == "" {
			log.Debug("no supported subprotocol requested", "neighbour", string(id), "requested", websocket.Subprotocols(r))
			CloseWithReason(wsc, CloseProtocolError, "Unsupported subprotocol")
			return
		}

		wsc.SetReadLimit(config.MaxMessageSize)

		if config.EnableCompression {
			wsc.EnableWriteCompression(true)
		}

		link := NewLink(id, wsc, config, log)

		// Separate goroutine for better GC of caller's data.
		go func() {
			link.log.Debug("websocket session established", "subprotocol", link.Subprotocol())

			if err := link.Serve(context.Background(), recv); err != nil {
				link.log.Warn("websocket session failed", "error", err)
				return
			}

			link.log.Debug("websocket session completed")
		}()
	})
}

// NodeIDFromPath extracts the neighbour id from the last segment of a request path
func NodeIDFromPath(path string, prefix string) (addressing.NodeID, error) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")

	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	return addressing.ParseNodeID(raw)
}

func CheckOrigin(origins string) func(r *http.Request) bool {
	if origins == "" {
		return func(r *http.Request) bool { return true }
	}

	hosts := strings.Split(strings.ToLower(origins), ",")

	return func(r *http.Request) bool {
		origin := strings.ToLower(r.Header.Get("Origin"))
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		for _, host := range hosts {
			if host[0] == '*' && strings.HasSuffix(u.Host, host[1:]) {
				return true
			}
			if u.Host == host {
				return true
			}
		}
		return false
	}
}
