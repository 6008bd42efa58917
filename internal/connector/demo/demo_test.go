package demo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-connector/internal/connector"
	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/method"
)

func testAdapter(t *testing.T) *connector.Adapter {
	t.Helper()
	a, err := New(envelope.GatewayConfig{
		Gateway: GatewayName,
		BaseURL: "https://api.demopay.test",
		Auth:    envelope.AuthBearer,
	})
	require.NoError(t, err)
	return a
}

func testCommon() envelope.CommonData {
	return envelope.CommonData{
		ReferenceID:                 "ref-1",
		ConnectorRequestReferenceID: "idem-1",
		Credentials:                 envelope.Credentials{APIKey: "sk_test_1", APISecret: "whsec"},
		Config: envelope.GatewayConfig{
			Gateway: GatewayName,
			BaseURL: "https://api.demopay.test",
			Auth:    envelope.AuthBearer,
		},
	}
}

func TestNew_Validation(t *testing.T) {
	t.Run("DefaultsGatewayAndAuth", func(t *testing.T) {
		a, err := New(envelope.GatewayConfig{BaseURL: "https://api.demopay.test"})
		require.NoError(t, err)
		assert.Equal(t, GatewayName, a.Name)
		assert.Equal(t, envelope.AuthBearer, a.Config.Auth)
	})

	t.Run("RejectsForeignGateway", func(t *testing.T) {
		_, err := New(envelope.GatewayConfig{Gateway: "stripe", BaseURL: "https://x"})
		assert.Error(t, err)
	})

	t.Run("RequiresBaseURL", func(t *testing.T) {
		_, err := New(envelope.GatewayConfig{Gateway: GatewayName})
		assert.Error(t, err)
	})
}

func TestAdapter_SupportsEveryFlow(t *testing.T) {
	a := testAdapter(t)
	for _, flow := range []envelope.Flow{
		envelope.FlowAuthorize, envelope.FlowCapture, envelope.FlowVoid,
		envelope.FlowRefund, envelope.FlowPSync, envelope.FlowRSync,
		envelope.FlowCreateOrder, envelope.FlowSetupMandate,
		envelope.FlowDefendDispute, envelope.FlowWebhook,
	} {
		assert.True(t, a.Supports(flow), "flow %q", flow)
	}
}

func TestAuthorizeFlow_Request(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.AuthorizeRequest, envelope.PaymentsResponse](
		envelope.FlowAuthorize, testCommon(), envelope.AuthorizeRequest{
			Amount:               1999,
			Currency:             "usd",
			CaptureAutomatically: true,
			PaymentMethod: method.Card{
				Number: "4242424242424242", ExpiryMonth: "12", ExpiryYear: "2030", CVC: "123",
			},
		})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, a.Authorize.HTTPMethod())

	url, err := a.Authorize.URL(env)
	require.NoError(t, err)
	assert.Equal(t, "https://api.demopay.test/v1/payments", url)

	headers, err := a.Authorize.Headers(env)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_1", headers.Get("Authorization"))
	assert.Equal(t, "idem-1", headers.Get("Idempotency-Key"))

	body, err := a.Authorize.Body(env)
	require.NoError(t, err)
	payload, present := body.Bytes()
	require.True(t, present)
	assert.JSONEq(t, `{
		"amount": 1999,
		"currency": "USD",
		"capture": true,
		"reference": "ref-1",
		"payment_method": {
			"type": "card",
			"number": "4242424242424242",
			"expiry_month": "12",
			"expiry_year": "2030",
			"cvc": "123",
			"holder_name": ""
		}
	}`, string(payload))
}

func TestAuthorizeFlow_UnsupportedMethodFailsLoudly(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.AuthorizeRequest, envelope.PaymentsResponse](
		envelope.FlowAuthorize, testCommon(), envelope.AuthorizeRequest{
			Amount: 1000, Currency: "USD", PaymentMethod: method.Crypto{},
		})
	require.NoError(t, err)

	_, err = a.Authorize.Body(env)
	require.Error(t, err)
	var notSupported *method.NotSupportedError
	require.True(t, errors.As(err, &notSupported))
	assert.Equal(t, GatewayName, notSupported.Gateway)
	assert.Equal(t, method.KindCrypto, notSupported.Method)
}

func TestAuthorizeFlow_HandleResponse(t *testing.T) {
	a := testAdapter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus envelope.AttemptStatus
	}{
		{"Authorised", `{"id":"pay_1","status":"authorised"}`, envelope.StatusAuthorized},
		{"SettlementToken", `{"id":"pay_1","status":"sentForSettlement","amount":1000}`, envelope.StatusCharged},
		{"PartialSettlement", `{"id":"pay_1","status":"sentForSettlement","amount":600}`, envelope.StatusPartialCharged},
		{"Refused", `{"id":"pay_1","status":"refused"}`, envelope.StatusAuthorizationFailed},
		{"UnknownToken", `{"id":"pay_1","status":"reviewing"}`, envelope.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := envelope.New[envelope.AuthorizeRequest, envelope.PaymentsResponse](
				envelope.FlowAuthorize, testCommon(), envelope.AuthorizeRequest{
					Amount: 1000, Currency: "USD",
					PaymentMethod: method.Card{Number: "4242"},
				})
			require.NoError(t, err)

			out, err := a.Authorize.HandleResponse(env, connector.RawResponse{StatusCode: 200, Body: []byte(tt.body)})
			require.NoError(t, err)

			assert.False(t, env.Resolved(), "input envelope must stay untouched")
			require.True(t, out.Resolved())
			assert.Equal(t, tt.wantStatus, out.Common.Status)
			assert.Equal(t, "pay_1", out.Common.ConnectorTransactionID)

			outcome, ok := out.Outcome()
			require.True(t, ok)
			require.NotNil(t, outcome.Response)
			assert.Equal(t, "pay_1", outcome.Response.TransactionID)
		})
	}

	t.Run("RedirectSurfaces", func(t *testing.T) {
		env, err := envelope.New[envelope.AuthorizeRequest, envelope.PaymentsResponse](
			envelope.FlowAuthorize, testCommon(), envelope.AuthorizeRequest{
				Amount: 1000, Currency: "USD",
				PaymentMethod: method.BankRedirect{Scheme: method.RedirectIdeal, Issuer: "INGBNL2A"},
			})
		require.NoError(t, err)

		out, err := a.Authorize.HandleResponse(env, connector.RawResponse{
			StatusCode: 200,
			Body:       []byte(`{"id":"pay_2","status":"authentication_required","redirect_url":"https://bank.example/3ds"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, envelope.StatusAuthenticationPending, out.Common.Status)
		outcome, _ := out.Outcome()
		require.NotNil(t, outcome.Response.Redirect)
		assert.Equal(t, "https://bank.example/3ds", outcome.Response.Redirect.URL)
	})
}

func TestCaptureFlow_BodyConventions(t *testing.T) {
	newEnv := func(t *testing.T, req envelope.CaptureRequest) *envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse] {
		t.Helper()
		env, err := envelope.New[envelope.CaptureRequest, envelope.PaymentsResponse](envelope.FlowCapture, testCommon(), req)
		require.NoError(t, err)
		return env
	}

	t.Run("PartialCaptureCarriesTheAmount", func(t *testing.T) {
		a := testAdapter(t)
		body, err := a.Capture.Body(newEnv(t, envelope.CaptureRequest{
			TransactionID: "pay_1", AmountToCapture: 600, PaymentAmount: 1000, Currency: "USD",
		}))
		require.NoError(t, err)
		payload, present := body.Bytes()
		require.True(t, present)
		assert.JSONEq(t, `{"amount":600}`, string(payload))
	})

	t.Run("FullCaptureDefaultsToNoBody", func(t *testing.T) {
		a := testAdapter(t)
		body, err := a.Capture.Body(newEnv(t, envelope.CaptureRequest{
			TransactionID: "pay_1", AmountToCapture: 1000, PaymentAmount: 1000, Currency: "USD",
		}))
		require.NoError(t, err)
		_, present := body.Bytes()
		assert.False(t, present)
	})

	t.Run("FullCaptureEmptyObjectWhenConfigured", func(t *testing.T) {
		a, err := New(envelope.GatewayConfig{
			Gateway: GatewayName, BaseURL: "https://api.demopay.test",
			Auth: envelope.AuthBearer, RequiresEmptyObjectForFullCapture: true,
		})
		require.NoError(t, err)
		body, err := a.Capture.Body(newEnv(t, envelope.CaptureRequest{
			TransactionID: "pay_1", PaymentAmount: 1000, Currency: "USD",
		}))
		require.NoError(t, err)
		require.True(t, body.IsEmptyObject())
		payload, _ := body.Bytes()
		assert.Equal(t, "{}", string(payload))
	})
}

func TestCaptureFlow_URLAndMissingID(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.CaptureRequest, envelope.PaymentsResponse](
		envelope.FlowCapture, testCommon(), envelope.CaptureRequest{
			TransactionID: "pay_1", PaymentAmount: 1000, Currency: "USD",
		})
	require.NoError(t, err)

	url, err := a.Capture.URL(env)
	require.NoError(t, err)
	assert.Equal(t, "https://api.demopay.test/v1/payments/pay_1/captures", url)

	empty, err := envelope.New[envelope.CaptureRequest, envelope.PaymentsResponse](
		envelope.FlowCapture, testCommon(), envelope.CaptureRequest{PaymentAmount: 1000, Currency: "USD"})
	require.NoError(t, err)
	_, err = a.Capture.URL(empty)
	require.Error(t, err)
	var missing *envelope.MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "transaction_id", missing.Field)
}

func TestCaptureFlow_PartialCaptureResolvesPartialCharged(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.CaptureRequest, envelope.PaymentsResponse](
		envelope.FlowCapture, testCommon(), envelope.CaptureRequest{
			TransactionID: "pay_1", AmountToCapture: 600, PaymentAmount: 1000, Currency: "USD",
		})
	require.NoError(t, err)

	// The gateway reports a generic success token and no amount field; the
	// requested capture amount is the remaining evidence.
	out, err := a.Capture.HandleResponse(env, connector.RawResponse{
		StatusCode: 200, Body: []byte(`{"id":"pay_1","status":"captured"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, envelope.StatusPartialCharged, out.Common.Status)
}

func TestVoidFlow(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.VoidRequest, envelope.PaymentsResponse](
		envelope.FlowVoid, testCommon(), envelope.VoidRequest{TransactionID: "pay_1"})
	require.NoError(t, err)

	url, err := a.Void.URL(env)
	require.NoError(t, err)
	assert.Equal(t, "https://api.demopay.test/v1/payments/pay_1/cancellations", url)

	body, err := a.Void.Body(env)
	require.NoError(t, err)
	assert.True(t, body.IsEmptyObject())

	t.Run("GenericSuccessLandsOnVoided", func(t *testing.T) {
		out, err := a.Void.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"pay_1","status":"captured"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, envelope.StatusVoided, out.Common.Status)
	})

	t.Run("CancelFailed", func(t *testing.T) {
		out, err := a.Void.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"pay_1","status":"cancel_failed"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, envelope.StatusVoidFailed, out.Common.Status)
	})
}

func TestRefundFlow(t *testing.T) {
	a := testAdapter(t)
	env, err := envelope.New[envelope.RefundRequest, envelope.RefundResponse](
		envelope.FlowRefund, testCommon(), envelope.RefundRequest{
			TransactionID: "pay_1", RefundID: "re_local_1", RefundAmount: 500,
			PaymentAmount: 1000, Currency: "USD", Reason: "requested_by_customer",
		})
	require.NoError(t, err)

	url, err := a.Refund.URL(env)
	require.NoError(t, err)
	assert.Equal(t, "https://api.demopay.test/v1/payments/pay_1/refunds", url)

	body, err := a.Refund.Body(env)
	require.NoError(t, err)
	payload, _ := body.Bytes()
	assert.JSONEq(t, `{"amount":500,"reference":"re_local_1","reason":"requested_by_customer"}`, string(payload))

	out, err := a.Refund.HandleResponse(env, connector.RawResponse{
		StatusCode: 200, Body: []byte(`{"id":"re_gw_9","status":"refunded"}`),
	})
	require.NoError(t, err)
	outcome, ok := out.Outcome()
	require.True(t, ok)
	assert.Equal(t, "re_gw_9", outcome.Response.ConnectorRefundID)
	assert.Equal(t, envelope.RefundSuccess, outcome.Response.Status)

	t.Run("PendingToken", func(t *testing.T) {
		out, err := a.Refund.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"re_gw_9","status":"refund_pending"}`),
		})
		require.NoError(t, err)
		outcome, _ := out.Outcome()
		assert.Equal(t, envelope.RefundPending, outcome.Response.Status)
	})
}

func TestSyncFlows(t *testing.T) {
	a := testAdapter(t)

	t.Run("PSync", func(t *testing.T) {
		env, err := envelope.New[envelope.PSyncRequest, envelope.PaymentsResponse](
			envelope.FlowPSync, testCommon(), envelope.PSyncRequest{TransactionID: "pay_1"})
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, a.PSync.HTTPMethod())
		url, err := a.PSync.URL(env)
		require.NoError(t, err)
		assert.Equal(t, "https://api.demopay.test/v1/payments/pay_1", url)

		body, err := a.PSync.Body(env)
		require.NoError(t, err)
		_, present := body.Bytes()
		assert.False(t, present)

		out, err := a.PSync.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"pay_1","status":"captured"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, envelope.StatusCharged, out.Common.Status)
	})

	t.Run("RSync", func(t *testing.T) {
		env, err := envelope.New[envelope.RSyncRequest, envelope.RefundResponse](
			envelope.FlowRSync, testCommon(), envelope.RSyncRequest{ConnectorRefundID: "re_gw_9"})
		require.NoError(t, err)

		url, err := a.RSync.URL(env)
		require.NoError(t, err)
		assert.Equal(t, "https://api.demopay.test/v1/refunds/re_gw_9", url)

		out, err := a.RSync.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"re_gw_9","status":"refund_failed"}`),
		})
		require.NoError(t, err)
		outcome, _ := out.Outcome()
		assert.Equal(t, envelope.RefundFailure, outcome.Response.Status)
	})

	t.Run("RSyncRequiresRefundID", func(t *testing.T) {
		env, err := envelope.New[envelope.RSyncRequest, envelope.RefundResponse](
			envelope.FlowRSync, testCommon(), envelope.RSyncRequest{})
		require.NoError(t, err)
		_, err = a.RSync.URL(env)
		var missing *envelope.MissingRequiredFieldError
		require.True(t, errors.As(err, &missing))
	})
}

func TestAuxiliaryFlows(t *testing.T) {
	a := testAdapter(t)

	t.Run("CreateOrder", func(t *testing.T) {
		env, err := envelope.New[envelope.CreateOrderRequest, envelope.OrderResponse](
			envelope.FlowCreateOrder, testCommon(), envelope.CreateOrderRequest{
				Amount: 1000, Currency: "usd", Receipt: "receipt-1",
			})
		require.NoError(t, err)

		url, err := a.CreateOrder.URL(env)
		require.NoError(t, err)
		assert.Equal(t, "https://api.demopay.test/v1/orders", url)

		body, err := a.CreateOrder.Body(env)
		require.NoError(t, err)
		payload, _ := body.Bytes()
		assert.JSONEq(t, `{"amount":1000,"currency":"USD","receipt":"receipt-1"}`, string(payload))

		out, err := a.CreateOrder.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"order_7"}`),
		})
		require.NoError(t, err)
		outcome, _ := out.Outcome()
		assert.Equal(t, "order_7", outcome.Response.OrderID)
	})

	t.Run("SetupMandate", func(t *testing.T) {
		env, err := envelope.New[envelope.SetupMandateRequest, envelope.MandateResponse](
			envelope.FlowSetupMandate, testCommon(), envelope.SetupMandateRequest{
				CustomerID:    "cus_1",
				PaymentMethod: method.Card{Number: "4242"},
			})
		require.NoError(t, err)

		out, err := a.SetupMandate.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"mandate_3","status":"authorised"}`),
		})
		require.NoError(t, err)
		outcome, _ := out.Outcome()
		assert.Equal(t, "mandate_3", outcome.Response.MandateID)
		assert.Equal(t, envelope.StatusAuthorized, outcome.Response.Status)
	})

	t.Run("DefendDispute", func(t *testing.T) {
		env, err := envelope.New[envelope.DefendDisputeRequest, envelope.DisputeResponse](
			envelope.FlowDefendDispute, testCommon(), envelope.DefendDisputeRequest{
				DisputeID: "dp_1", Evidence: map[string]string{"receipt": "r.pdf"},
			})
		require.NoError(t, err)

		url, err := a.DefendDispute.URL(env)
		require.NoError(t, err)
		assert.Equal(t, "https://api.demopay.test/v1/disputes/dp_1/defend", url)

		out, err := a.DefendDispute.HandleResponse(env, connector.RawResponse{
			StatusCode: 200, Body: []byte(`{"id":"dp_1","accepted":true}`),
		})
		require.NoError(t, err)
		outcome, _ := out.Outcome()
		assert.True(t, outcome.Response.Accepted)
	})
}

func TestHandleError(t *testing.T) {
	a := testAdapter(t)

	t.Run("DeclaredCode", func(t *testing.T) {
		er := a.Authorize.HandleError(connector.RawResponse{
			StatusCode: 402,
			Body:       []byte(`{"error":{"code":"card_refused","message":"Card refused.","decline_code":"do_not_honor"},"transaction_id":"pay_1"}`),
		})
		assert.Equal(t, envelope.KindCardDeclined, er.Kind)
		assert.Equal(t, "Card refused.", er.Message)
		assert.Equal(t, "pay_1", er.ConnectorTransactionID)
		assert.Equal(t, "do_not_honor", er.NetworkDeclineCode)
		require.NotNil(t, er.AttemptStatusHint)
		assert.Equal(t, envelope.StatusAuthorizationFailed, *er.AttemptStatusHint)
	})

	t.Run("RuleClassification", func(t *testing.T) {
		er := a.Authorize.HandleError(connector.RawResponse{StatusCode: 429, Body: []byte(`{}`)})
		assert.Equal(t, envelope.KindRateLimited, er.Kind)

		er = a.Authorize.HandleError(connector.RawResponse{StatusCode: 503, Body: []byte(`oops, not json`)})
		assert.Equal(t, envelope.KindTransient, er.Kind)
	})

	t.Run("UnknownCodePreserved", func(t *testing.T) {
		er := a.Capture.HandleError(connector.RawResponse{
			StatusCode: 418,
			Body:       []byte(`{"error":{"code":"err_9999","message":"weird"}}`),
		})
		assert.Equal(t, envelope.KindUnknown, er.Kind)
		assert.Equal(t, "err_9999", er.Code)
	})
}

func TestWebhookDialect(t *testing.T) {
	a := testAdapter(t)
	require.NotNil(t, a.Webhook)
	assert.Equal(t, GatewayName, a.Webhook.Gateway())

	payload := []byte(`{"event_type":"payment.captured","data":{"reference":"pay_1"}}`)
	mac := hmac.New(sha256.New, []byte("whsec_demo"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	require.NoError(t, a.Webhook.Verify(payload, signature, "whsec_demo"))

	event, err := a.Webhook.Classify(payload)
	require.NoError(t, err)
	assert.Equal(t, "payment_captured", string(event))

	ref, err := a.Webhook.ExtractReference(payload)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", ref)

	t.Run("SchemaRejectsMissingReference", func(t *testing.T) {
		_, err := a.Webhook.Classify([]byte(`{"event_type":"payment.captured","data":{}}`))
		assert.Error(t, err)
	})
}
