package errtax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-connector/internal/envelope"
)

func testCodes() map[string]Entry {
	return map[string]Entry{
		"invalid_api_key":    {Kind: envelope.KindAuthenticationFailed},
		"insufficient_funds": {Kind: envelope.KindInsufficientFunds, StatusHint: envelope.StatusAuthorizationFailed},
		"already_captured":   {Kind: envelope.KindAlreadyProcessed, StatusHint: envelope.StatusCharged},
	}
}

func testRules() []RuleConfig {
	return []RuleConfig{
		{Name: "throttled", Expression: "http_status == 429 || code == 'too_many_requests'", Kind: envelope.KindRateLimited},
		{Name: "gateway-down", Expression: "http_status >= 500", Kind: envelope.KindTransient},
	}
}

func TestNewMapper(t *testing.T) {
	t.Run("PanicsOnEmptyGateway", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = NewMapper("", nil, nil) })
	})

	t.Run("RejectsBadRuleExpression", func(t *testing.T) {
		_, err := NewMapper("demopay", nil, []RuleConfig{
			{Name: "broken", Expression: "http_status ==", Kind: envelope.KindTransient},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("RejectsRuleWithoutKind", func(t *testing.T) {
		_, err := NewMapper("demopay", nil, []RuleConfig{
			{Name: "kindless", Expression: "http_status == 1"},
		})
		assert.Error(t, err)
	})

	t.Run("RejectsAnonymousRule", func(t *testing.T) {
		_, err := NewMapper("demopay", nil, []RuleConfig{
			{Expression: "http_status == 1", Kind: envelope.KindTransient},
		})
		assert.Error(t, err)
	})
}

func TestMap_CodeTable(t *testing.T) {
	m, err := NewMapper("demopay", testCodes(), nil)
	require.NoError(t, err)

	t.Run("KnownCode", func(t *testing.T) {
		got := m.Map(RawError{Code: "invalid_api_key"}, 401)
		assert.Equal(t, envelope.KindAuthenticationFailed, got.Kind)
		assert.Equal(t, "invalid_api_key", got.RawCode)
		assert.Nil(t, got.StatusHint)
	})

	t.Run("CaseInsensitiveLookup", func(t *testing.T) {
		got := m.Map(RawError{Code: "  Invalid_API_Key  "}, 401)
		assert.Equal(t, envelope.KindAuthenticationFailed, got.Kind)
	})

	t.Run("StatusHintAttached", func(t *testing.T) {
		got := m.Map(RawError{Code: "already_captured"}, 409)
		assert.Equal(t, envelope.KindAlreadyProcessed, got.Kind)
		require.NotNil(t, got.StatusHint)
		assert.Equal(t, envelope.StatusCharged, *got.StatusHint)
	})

	t.Run("DeclineCodeWinsOverCode", func(t *testing.T) {
		// Both are declared; the network decline code is the more specific
		// signal and must win.
		got := m.Map(RawError{Code: "already_captured", DeclineCode: "insufficient_funds"}, 402)
		assert.Equal(t, envelope.KindInsufficientFunds, got.Kind)
	})

	t.Run("CodeWinsOverHTTPFallback", func(t *testing.T) {
		// HTTP 500 would classify Transient, but the declared code wins.
		got := m.Map(RawError{Code: "insufficient_funds"}, 500)
		assert.Equal(t, envelope.KindInsufficientFunds, got.Kind)
	})
}

func TestMap_Rules(t *testing.T) {
	m, err := NewMapper("demopay", testCodes(), testRules())
	require.NoError(t, err)

	t.Run("RuleOnHTTPStatus", func(t *testing.T) {
		got := m.Map(RawError{Code: "mystery"}, 429)
		assert.Equal(t, envelope.KindRateLimited, got.Kind)
		assert.Equal(t, "mystery", got.RawCode)
	})

	t.Run("RuleOnCode", func(t *testing.T) {
		got := m.Map(RawError{Code: "TOO_MANY_REQUESTS"}, 400)
		assert.Equal(t, envelope.KindRateLimited, got.Kind)
	})

	t.Run("FallsThroughToLaterRule", func(t *testing.T) {
		got := m.Map(RawError{}, 503)
		assert.Equal(t, envelope.KindTransient, got.Kind)
	})

	t.Run("TableBeatsRules", func(t *testing.T) {
		got := m.Map(RawError{Code: "insufficient_funds"}, 429)
		assert.Equal(t, envelope.KindInsufficientFunds, got.Kind)
	})
}

func TestMap_HTTPFallback(t *testing.T) {
	m, err := NewMapper("demopay", nil, nil)
	require.NoError(t, err)

	tests := []struct {
		status int
		want   envelope.ErrorKind
	}{
		{400, envelope.KindValidation},
		{401, envelope.KindAuthenticationFailed},
		{403, envelope.KindAuthorizationFailed},
		{404, envelope.KindValidation},
		{422, envelope.KindValidation},
		{429, envelope.KindRateLimited},
		{500, envelope.KindTransient},
		{502, envelope.KindTransient},
		{599, envelope.KindTransient},
		{418, envelope.KindUnknown},
		{200, envelope.KindUnknown},
	}
	for _, tt := range tests {
		got := m.Map(RawError{}, tt.status)
		assert.Equal(t, tt.want, got.Kind, "http %d", tt.status)
	}
}

func TestMap_NeverFailsAndPreservesRawCode(t *testing.T) {
	m, err := NewMapper("demopay", testCodes(), testRules())
	require.NoError(t, err)

	got := m.Map(RawError{Code: "err_9999_galactic"}, 418)
	assert.Equal(t, envelope.KindUnknown, got.Kind)
	assert.Equal(t, "err_9999_galactic", got.RawCode)

	// Decline code backs up an absent application code.
	got = m.Map(RawError{DeclineCode: "do_not_honor"}, 0)
	assert.Equal(t, "do_not_honor", got.RawCode)
}

func TestMap_IsIdempotent(t *testing.T) {
	m, err := NewMapper("demopay", testCodes(), testRules())
	require.NoError(t, err)

	raw := RawError{Code: "already_captured", Message: "Payment already captured."}
	first := m.Map(raw, 409)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, m.Map(raw, 409))
	}
}
