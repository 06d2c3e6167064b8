package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecks_Run(t *testing.T) {
	t.Parallel()

	c := NewChecks(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	res := c.Run(context.Background())
	assert.NoError(t, res["postgres"])
	assert.EqualError(t, res["redis"], "redis: connection refused")
	assert.False(t, Healthy(res))

	delete(res, "redis")
	assert.True(t, Healthy(res))
}
