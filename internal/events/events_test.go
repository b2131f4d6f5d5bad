package events_test

import (
	"context"
	"testing"

	"maaztelecom/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndUnwrap(t *testing.T) {
	env, err := events.New(events.InvoiceUploaded, "sale-1", events.InvoicePayload{
		SaleID: "sale-1", InvoiceURL: "http://x/inv.pdf", Attempt: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "sale-1", env.CorrelationID)

	p, err := events.UnwrapPayload[events.InvoicePayload](env)
	require.NoError(t, err)
	assert.Equal(t, "http://x/inv.pdf", p.InvoiceURL)
	assert.Equal(t, 2, p.Attempt)
}

func TestRecorder(t *testing.T) {
	r := &events.Recorder{}
	env, _ := events.New(events.SaleRecorded, "s", events.SalePayload{SaleID: "s"})
	require.NoError(t, r.Publish(context.Background(), env))
	assert.Equal(t, []string{events.SaleRecorded}, r.Types())
}
