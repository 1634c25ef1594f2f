package echoapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_clientLimiters(t *testing.T) {
	cl := newClientLimiters(1, 1, 2)

	a := cl.get("10.0.0.1")
	assert.Same(t, a, cl.get("10.0.0.1"))
	cl.get("10.0.0.2")
	assert.Len(t, cl.clients, 2)

	// a full set drops its idle clients first
	cl.clients["10.0.0.1"].seen = time.Now().Add(-2 * rateClientIdle)
	cl.get("10.0.0.3")
	assert.Len(t, cl.clients, 2)
	assert.NotContains(t, cl.clients, "10.0.0.1")
	assert.Contains(t, cl.clients, "10.0.0.2")

	// and starts over when every client is active
	cl.get("10.0.0.4")
	assert.Len(t, cl.clients, 1)
	assert.Contains(t, cl.clients, "10.0.0.4")

	// a dropped client gets a fresh limiter
	assert.NotSame(t, a, cl.get("10.0.0.1"))
}
