// Package natslink carries OCPP frames between networking nodes over NATS subjects.
//
// Every node subscribes to <prefix>.<node id>. A frame sent to a neighbour is
// published to the neighbour's subject with headers identifying the sender
// and the frame type.
package natslink

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/joomcode/errorx"
	"github.com/nats-io/nats.go"
	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/router"
)

const (
	SourceHeader    = "Ocpp-Source"
	FrameTypeHeader = "Ocpp-Frame-Type"
)

// Receiver consumes frames read from links (implemented by *node.Node)
type Receiver interface {
	HandleFrame(ctx context.Context, from router.Connection, frame ocpp.Frame)
	Connect(conn router.Connection)
	Disconnect(conn router.Connection)
	Table() *router.Table
}

var subjectEscaper = strings.NewReplacer(
	"%", "%25",
	".", "%2E",
	"*", "%2A",
	">", "%3E",
	" ", "%20",
	"\t", "%09",
)

// Subject returns the subject a node listens on
func Subject(prefix string, id addressing.NodeID) string {
	return prefix + "." + subjectEscaper.Replace(string(id))
}

// Connect opens a NATS connection
func Connect(c *Config, l *slog.Logger) (*nats.Conn, error) {
	log := l.With("context", "nats")

	connectOptions := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(c.MaxReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("connection failed", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("connection restored", "url", nc.ConnectedUrl())
		}),
	}

	if c.DontRandomizeServers {
		connectOptions = append(connectOptions, nats.DontRandomize())
	}

	nc, err := nats.Connect(c.Servers, connectOptions...)

	if err != nil {
		return nil, errorx.Decorate(err, "failed to connect to NATS")
	}

	return nc, nil
}

// Link is a neighbour reachable over NATS
type Link struct {
	local  addressing.NodeID
	remote addressing.NodeID

	subject string
	conn    *nats.Conn
}

var _ router.Connection = (*Link)(nil)

func NewLink(conn *nats.Conn, prefix string, local, remote addressing.NodeID) *Link {
	return &Link{
		local:   local,
		remote:  remote,
		subject: Subject(prefix, remote),
		conn:    conn,
	}
}

func (l *Link) ID() addressing.NodeID {
	return l.remote
}

func (l *Link) Send(ctx context.Context, frame ocpp.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := nats.NewMsg(l.subject)
	msg.Header.Set(SourceHeader, string(l.local))
	msg.Header.Set(FrameTypeHeader, frame.Type.String())
	msg.Data = frame.Payload

	return l.conn.PublishMsg(msg)
}

// Listener receives frames published to the local node's subject.
// Links are created for senders on first contact and registered with the receiver.
type Listener struct {
	recv   Receiver
	conn   *nats.Conn
	prefix string
	local  addressing.NodeID

	mu    sync.Mutex
	links map[addressing.NodeID]*Link
	sub   *nats.Subscription

	ctx    context.Context
	cancel context.CancelFunc

	log *slog.Logger
}

func NewListener(recv Receiver, conn *nats.Conn, prefix string, local addressing.NodeID, l *slog.Logger) *Listener {
	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		recv:   recv,
		conn:   conn,
		prefix: prefix,
		local:  local,
		links:  make(map[addressing.NodeID]*Link),
		ctx:    ctx,
		cancel: cancel,
		log:    l.With("context", "natslink"),
	}
}

// Start subscribes to the local subject and registers links to the known neighbours
func (ln *Listener) Start(neighbours []addressing.NodeID) error {
	for _, id := range neighbours {
		ln.link(id)
	}

	sub, err := ln.conn.Subscribe(Subject(ln.prefix, ln.local), ln.handleMessage)

	if err != nil {
		return errorx.Decorate(err, "failed to subscribe")
	}

	ln.mu.Lock()
	ln.sub = sub
	ln.mu.Unlock()

	ln.log.Info("listening", "subject", sub.Subject)

	return nil
}

// Shutdown unsubscribes and disconnects all links
func (ln *Listener) Shutdown(ctx context.Context) error {
	ln.cancel()

	ln.mu.Lock()
	sub := ln.sub
	links := ln.links
	ln.sub = nil
	ln.links = make(map[addressing.NodeID]*Link)
	ln.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe() // nolint:errcheck
	}

	for _, link := range links {
		ln.recv.Disconnect(link)
	}

	return nil
}

func (ln *Listener) link(id addressing.NodeID) *Link {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	if link, ok := ln.links[id]; ok {
		return link
	}

	return ln.addLocked(id)
}

func (ln *Listener) addLocked(id addressing.NodeID) *Link {
	link := NewLink(ln.conn, ln.prefix, ln.local, id)
	ln.links[id] = link
	ln.recv.Connect(link)

	return link
}

// adopt links an unknown sender on first contact, unless the node already
// reaches that id through another transport
func (ln *Listener) adopt(id addressing.NodeID) (*Link, bool) {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	if link, ok := ln.links[id]; ok {
		return link, true
	}

	if _, taken := ln.recv.Table().Neighbour(id); taken {
		return nil, false
	}

	return ln.addLocked(id), true
}

func (ln *Listener) handleMessage(msg *nats.Msg) {
	source, err := addressing.ParseNodeID(msg.Header.Get(SourceHeader))

	if err != nil {
		ln.log.Warn("message without a valid source", "error", err)
		return
	}

	frame := ocpp.TextFrameOf(msg.Data)

	if msg.Header.Get(FrameTypeHeader) == ocpp.BinaryFrame.String() {
		frame = ocpp.BinaryFrameOf(msg.Data)
	}

	link, ok := ln.adopt(source)

	if !ok {
		ln.log.Warn("message from a neighbour connected elsewhere", "source", string(source))
		return
	}

	ln.recv.HandleFrame(ln.ctx, link, frame)
}
