package transport

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountWebhookEvent(t *testing.T) {
	counter := webhookEvents.WithLabelValues("demopay", "payment_captured")
	before := testutil.ToFloat64(counter)

	CountWebhookEvent("demopay", "payment_captured")
	CountWebhookEvent("demopay", "payment_captured")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestFlowExecutionCounter(t *testing.T) {
	counter := flowExecutions.WithLabelValues("demopay", "authorize", outcomeSuccess)
	before := testutil.ToFloat64(counter)

	flowExecutions.WithLabelValues("demopay", "authorize", outcomeSuccess).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
