package health

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checks are the dependencies the service needs to take traffic.
type Checks struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func NewChecks(deps map[string]Pinger) *Checks {
	return &Checks{deps: deps, timeout: 2 * time.Second}
}

// Run pings every dependency concurrently and returns the per-dependency
// result keyed by name. A nil value means healthy.
func (c *Checks) Run(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make(map[string]error, len(c.deps))
	errs := make([]error, len(c.deps))
	names := make([]string, 0, len(c.deps))
	for name := range c.deps {
		names = append(names, name)
	}

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			if err := c.deps[name].Ping(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		results[name] = errs[i]
	}
	return results
}

// Healthy reports whether every result is nil.
func Healthy(results map[string]error) bool {
	for _, err := range results {
		if err != nil {
			return false
		}
	}
	return true
}
