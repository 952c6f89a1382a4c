package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/utils"
)

const handshakeTimeout = 10 * time.Second

// Dial connects to a neighbour's endpoint as localID.
// The returned link identifies the neighbour as remoteID.
func Dial(ctx context.Context, endpoint string, localID, remoteID addressing.NodeID, protocol *ocpp.Config, config *Config, l *slog.Logger) (*Link, error) {
	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  handshakeTimeout,
		Subprotocols:      protocol.Subprotocols,
		ReadBufferSize:    config.ReadBufferSize,
		WriteBufferSize:   config.WriteBufferSize,
		EnableCompression: config.EnableCompression,
	}

	target := strings.TrimSuffix(endpoint, "/") + "/" + url.PathEscape(string(localID))

	conn, resp, err := dialer.DialContext(ctx, target, nil)

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, errorx.Decorate(err, "failed to connect to %s", target)
	}

	if len(protocol.Subprotocols) > 0 && conn.Subprotocol() == "" {
		CloseWithReason(conn, CloseProtocolError, "Unsupported subprotocol")
		return nil, errorx.IllegalState.New("%s has not accepted any of the subprotocols: %s", target, strings.Join(protocol.Subprotocols, ", "))
	}

	conn.SetReadLimit(config.MaxMessageSize)

	return NewLink(remoteID, conn, config, l.With("context", "ws")), nil
}

// Upstream keeps a link to the upstream node open, redialing with a backoff when it drops
type Upstream struct {
	recv     Receiver
	localID  addressing.NodeID
	remoteID addressing.NodeID
	protocol *ocpp.Config
	config   *Config

	log *slog.Logger
}

func NewUpstream(recv Receiver, localID addressing.NodeID, protocol *ocpp.Config, config *Config, l *slog.Logger) *Upstream {
	return &Upstream{
		recv:     recv,
		localID:  localID,
		remoteID: addressing.NodeID(config.UpstreamID),
		protocol: protocol,
		config:   config,
		log:      l.With("context", "upstream", "upstream", config.UpstreamID),
	}
}

// Run blocks until ctx is done
func (u *Upstream) Run(ctx context.Context) error {
	maxInterval := time.Duration(u.config.MaxReconnectInterval) * time.Second
	attempt := 0

	for {
		link, err := Dial(ctx, u.config.UpstreamURL, u.localID, u.remoteID, u.protocol, u.config, u.log)

		if err == nil {
			attempt = 0
			u.log.Info("connected", "url", u.config.UpstreamURL, "subprotocol", link.Subprotocol())

			u.serve(ctx, link)
		} else {
			u.log.Warn("failed to connect", "error", err)
		}

		if ctx.Err() != nil {
			return nil
		}

		delay := utils.NextRetry(attempt, maxInterval)
		attempt++

		u.log.Debug("reconnecting", "delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (u *Upstream) serve(ctx context.Context, link *Link) {
	linkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-linkCtx.Done()
		link.Close(CloseGoingAway, "Shutting down")
	}()

	if err := link.Serve(linkCtx, u.recv); err != nil {
		u.log.Warn("connection lost", "error", err)
		return
	}

	u.log.Info("disconnected")
}
