package cli

import (
	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/node"
)

// Option represents a Runner configuration function
type Option func(*Runner) error

// WithName is an Option to set Runner name
func WithName(name string) Option {
	return func(r *Runner) error {
		r.name = name
		return nil
	}
}

// WithHandler is an Option to register an action handler on the node
func WithHandler(action string, h node.Handler) Option {
	return func(r *Runner) error {
		if _, ok := r.handlers[action]; ok {
			return errorx.IllegalArgument.New("Handler for %s has been already assigned", action)
		}
		r.handlers[action] = h
		return nil
	}
}

// WithNodeSetup is an Option to configure the node (handlers, observers) before transports start
func WithNodeSetup(fn func(n *node.Node) error) Option {
	return func(r *Runner) error {
		r.nodeSetups = append(r.nodeSetups, fn)
		return nil
	}
}

// WithShutdowable adds a new shutdownable instance to be shutdown at server stop
func WithShutdownable(instance Shutdownable) Option {
	return func(r *Runner) error {
		r.shutdownables = append(r.shutdownables, instance)
		return nil
	}
}
