package router

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ocppnet/ocppnet/addressing"
	"github.com/ocppnet/ocppnet/ocpp"
)

// Connection is a link to a directly connected neighbour node
type Connection interface {
	ID() addressing.NodeID
	Send(ctx context.Context, frame ocpp.Frame) error
}

// Table keeps track of neighbours and routes to nodes behind them.
//
// Lookup order: direct neighbour, static route, learned route, default route.
// Routes name the neighbour to go through; a route whose neighbour is not
// connected resolves to nothing.
type Table struct {
	mu           sync.RWMutex
	neighbours   map[addressing.NodeID]Connection
	routes       map[addressing.NodeID]addressing.NodeID
	learned      map[addressing.NodeID]addressing.NodeID
	defaultRoute addressing.NodeID
}

func NewTable() *Table {
	return &Table{
		neighbours: make(map[addressing.NodeID]Connection),
		routes:     make(map[addressing.NodeID]addressing.NodeID),
		learned:    make(map[addressing.NodeID]addressing.NodeID),
	}
}

// Add registers a neighbour and returns the connection it replaced (if any)
func (t *Table) Add(conn Connection) Connection {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.neighbours[conn.ID()]
	t.neighbours[conn.ID()] = conn

	return prev
}

// Remove unregisters the neighbour unless it has been replaced by another connection
func (t *Table) Remove(conn Connection) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.neighbours[conn.ID()]; ok && current == conn {
		delete(t.neighbours, conn.ID())
		return true
	}

	return false
}

func (t *Table) Neighbour(id addressing.NodeID) (Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	conn, ok := t.neighbours[id]
	return conn, ok
}

// Neighbours returns connected neighbours ordered by id
func (t *Table) Neighbours() []Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	conns := make([]Connection, 0, len(t.neighbours))

	for _, conn := range t.neighbours {
		conns = append(conns, conn)
	}

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })

	return conns
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.neighbours)
}

// AddRoute defines a static route to dest through the neighbour via
func (t *Table) AddRoute(dest addressing.NodeID, via addressing.NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.routes[dest]; ok {
		return fmt.Errorf("route has been already defined: %s", dest)
	}

	t.routes[dest] = via

	return nil
}

func (t *Table) RemoveRoute(dest addressing.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.routes, dest)
}

// Routes returns a copy of the static routes
func (t *Table) Routes() map[addressing.NodeID]addressing.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	routes := make(map[addressing.NodeID]addressing.NodeID, len(t.routes))

	for dest, via := range t.routes {
		routes[dest] = via
	}

	return routes
}

// Learn records that dest has been seen behind the neighbour via.
// Learned routes never override static ones.
func (t *Table) Learn(dest addressing.NodeID, via addressing.NodeID) {
	if dest.IsZero() || dest.IsBroadcast() || dest == via {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.learned[dest] = via
}

// Forget drops learned routes going through the neighbour via
func (t *Table) Forget(via addressing.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for dest, hop := range t.learned {
		if hop == via {
			delete(t.learned, dest)
		}
	}
}

// SetDefaultRoute makes the neighbour via the next hop for unknown destinations
func (t *Table) SetDefaultRoute(via addressing.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.defaultRoute = via
}

func (t *Table) DefaultRoute() addressing.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.defaultRoute
}

// Lookup resolves the next-hop connection for a destination node
func (t *Table) Lookup(dest addressing.NodeID) (Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !dest.IsZero() {
		if conn, ok := t.neighbours[dest]; ok {
			return conn, true
		}

		if via, ok := t.routes[dest]; ok {
			conn, ok := t.neighbours[via]
			return conn, ok
		}

		if via, ok := t.learned[dest]; ok {
			if conn, ok := t.neighbours[via]; ok {
				return conn, true
			}
		}
	}

	if t.defaultRoute != "" {
		conn, ok := t.neighbours[t.defaultRoute]
		return conn, ok
	}

	return nil, false
}
