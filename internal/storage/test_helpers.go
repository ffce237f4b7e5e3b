package storage

import (
	"context"
	"testing"
	"time"
)

// testContext returns a context bounded to 10s so a stalled database
// connection fails the test instead of hanging the run
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
