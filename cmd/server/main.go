package main

import (
	stdcontext "context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/payment-connector/internal/connector"
	"github.com/yourorg/payment-connector/internal/connector/demo"
	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/method"
	"github.com/yourorg/payment-connector/internal/monitor"
	"github.com/yourorg/payment-connector/internal/reporting"
	"github.com/yourorg/payment-connector/internal/transport"
)

// server wires one gateway adapter to the transport harness and exposes the
// payment, sync, webhook and reporting endpoints.
type server struct {
	adapter  *connector.Adapter
	client   *transport.Client
	reporter *reporting.RetrospectiveReporter
	logger   zerolog.Logger
}

// paymentMethodDTO is the wire shape callers submit payment methods in. It is
// deliberately flat; toData folds it into the right closed-set variant.
type paymentMethodDTO struct {
	Type   string `json:"type" binding:"required"`
	Scheme string `json:"scheme,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Token  string `json:"token,omitempty"`

	Number      string `json:"number,omitempty"`
	ExpiryMonth string `json:"expiry_month,omitempty"`
	ExpiryYear  string `json:"expiry_year,omitempty"`
	CVC         string `json:"cvc,omitempty"`
	HolderName  string `json:"holder_name,omitempty"`
}

func (dto paymentMethodDTO) toData() (method.Data, error) {
	switch method.Kind(dto.Type) {
	case method.KindCard:
		return method.Card{
			Number:      dto.Number,
			ExpiryMonth: dto.ExpiryMonth,
			ExpiryYear:  dto.ExpiryYear,
			CVC:         dto.CVC,
			HolderName:  dto.HolderName,
		}, nil
	case method.KindWallet:
		return method.Wallet{Type: method.WalletType(dto.Scheme), Token: dto.Token}, nil
	case method.KindBankTransfer:
		return method.BankTransfer{Scheme: method.BankTransferScheme(dto.Scheme), HolderName: dto.HolderName}, nil
	case method.KindBankRedirect:
		return method.BankRedirect{Scheme: method.BankRedirectScheme(dto.Scheme), Issuer: dto.Issuer}, nil
	case method.KindPayLater:
		return method.PayLater{Issuer: method.PayLaterIssuer(dto.Issuer), Token: dto.Token}, nil
	case method.KindVoucher:
		return method.Voucher{Issuer: method.VoucherIssuer(dto.Issuer)}, nil
	case method.KindCrypto:
		return method.Crypto{}, nil
	case method.KindGiftCard:
		return method.GiftCard{Number: dto.Number, PIN: dto.CVC}, nil
	case method.KindCardRedirect:
		return method.CardRedirect{}, nil
	default:
		return nil, fmt.Errorf("unknown payment method type %q", dto.Type)
	}
}

func (s *server) commonData(referenceID string) envelope.CommonData {
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	return envelope.CommonData{
		ReferenceID: referenceID,
		Config:      s.adapter.Config,
		Credentials: envelope.Credentials{
			APIKey:    os.Getenv("DEMOPAY_API_KEY"),
			APISecret: os.Getenv("DEMOPAY_API_SECRET"),
		},
	}
}

// respond writes a resolved envelope outcome. An unresolved envelope means
// the gateway call never completed; that unknown outcome is reported as 502
// so callers know to retry behind the same reference id.
func respond[Req, Resp any](c *gin.Context, env *envelope.Envelope[Req, Resp]) {
	outcome, ok := env.Outcome()
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        "gateway call did not complete; outcome unknown",
			"reference_id": env.Common.ReferenceID,
		})
		return
	}
	if outcome.Error != nil {
		httpStatus := http.StatusBadGateway
		switch outcome.Error.Kind {
		case envelope.KindValidation:
			httpStatus = http.StatusBadRequest
		case envelope.KindNotSupported:
			httpStatus = http.StatusNotImplemented
		case envelope.KindAuthenticationFailed, envelope.KindAuthorizationFailed:
			httpStatus = http.StatusUnauthorized
		case envelope.KindCardDeclined, envelope.KindInsufficientFunds:
			httpStatus = http.StatusPaymentRequired
		case envelope.KindAlreadyProcessed:
			httpStatus = http.StatusConflict
		case envelope.KindRateLimited:
			httpStatus = http.StatusTooManyRequests
		}
		c.JSON(httpStatus, gin.H{
			"status":       env.Common.Status,
			"reference_id": env.Common.ReferenceID,
			"error":        outcome.Error,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       env.Common.Status,
		"reference_id": env.Common.ReferenceID,
		"response":     outcome.Response,
	})
}

// run executes one flow and writes the result, collapsing the boilerplate
// shared by every payment handler.
func run[Req, Resp any](c *gin.Context, s *server, flow connector.Flow[Req, Resp], env *envelope.Envelope[Req, Resp], meta transport.Meta) {
	out, err := transport.Execute(c.Request.Context(), s.client, s.adapter.Name, flow, env, meta)
	if out == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	respond(c, out)
}

func (s *server) authorizeHandler(c *gin.Context) {
	var req struct {
		Amount        int64            `json:"amount" binding:"required"`
		Currency      string           `json:"currency" binding:"required"`
		Capture       bool             `json:"capture"`
		ReferenceID   string           `json:"reference_id"`
		ReturnURL     string           `json:"return_url"`
		PaymentMethod paymentMethodDTO `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pm, err := req.PaymentMethod.toData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	env, err := envelope.New[envelope.AuthorizeRequest, envelope.PaymentsResponse](
		envelope.FlowAuthorize,
		s.commonData(req.ReferenceID),
		envelope.AuthorizeRequest{
			Amount:               req.Amount,
			Currency:             req.Currency,
			PaymentMethod:        pm,
			CaptureAutomatically: req.Capture,
			ReturnURL:            req.ReturnURL,
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.Authorize, env, transport.Meta{Amount: req.Amount, Currency: req.Currency})
}

func (s *server) captureHandler(c *gin.Context) {
	var req struct {
		AmountToCapture int64  `json:"amount_to_capture"`
		PaymentAmount   int64  `json:"payment_amount" binding:"required"`
		Currency        string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	env, err := envelope.New[envelope.CaptureRequest, envelope.PaymentsResponse](
		envelope.FlowCapture,
		s.commonData(""),
		envelope.CaptureRequest{
			TransactionID:   c.Param("id"),
			AmountToCapture: req.AmountToCapture,
			PaymentAmount:   req.PaymentAmount,
			Currency:        req.Currency,
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.Capture, env, transport.Meta{Amount: req.AmountToCapture, Currency: req.Currency})
}

func (s *server) voidHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // body is optional for voids

	env, err := envelope.New[envelope.VoidRequest, envelope.PaymentsResponse](
		envelope.FlowVoid,
		s.commonData(""),
		envelope.VoidRequest{TransactionID: c.Param("id"), CancellationReason: req.Reason},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.Void, env, transport.Meta{})
}

func (s *server) refundHandler(c *gin.Context) {
	var req struct {
		Amount        int64  `json:"amount" binding:"required"`
		PaymentAmount int64  `json:"payment_amount"`
		Currency      string `json:"currency" binding:"required"`
		RefundID      string `json:"refund_id"`
		Reason        string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if req.RefundID == "" {
		req.RefundID = uuid.NewString()
	}
	env, err := envelope.New[envelope.RefundRequest, envelope.RefundResponse](
		envelope.FlowRefund,
		s.commonData(""),
		envelope.RefundRequest{
			TransactionID: c.Param("id"),
			RefundID:      req.RefundID,
			RefundAmount:  req.Amount,
			PaymentAmount: req.PaymentAmount,
			Currency:      req.Currency,
			Reason:        req.Reason,
		},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.Refund, env, transport.Meta{Amount: req.Amount, Currency: req.Currency})
}

func (s *server) psyncHandler(c *gin.Context) {
	env, err := envelope.New[envelope.PSyncRequest, envelope.PaymentsResponse](
		envelope.FlowPSync,
		s.commonData(""),
		envelope.PSyncRequest{TransactionID: c.Param("id")},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.PSync, env, transport.Meta{})
}

func (s *server) rsyncHandler(c *gin.Context) {
	env, err := envelope.New[envelope.RSyncRequest, envelope.RefundResponse](
		envelope.FlowRSync,
		s.commonData(""),
		envelope.RSyncRequest{ConnectorRefundID: c.Param("id")},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.RSync, env, transport.Meta{})
}

func (s *server) createOrderHandler(c *gin.Context) {
	var req struct {
		Amount   int64  `json:"amount" binding:"required"`
		Currency string `json:"currency" binding:"required"`
		Receipt  string `json:"receipt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	env, err := envelope.New[envelope.CreateOrderRequest, envelope.OrderResponse](
		envelope.FlowCreateOrder,
		s.commonData(""),
		envelope.CreateOrderRequest{Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.CreateOrder, env, transport.Meta{Amount: req.Amount, Currency: req.Currency})
}

func (s *server) setupMandateHandler(c *gin.Context) {
	var req struct {
		CustomerID    string           `json:"customer_id" binding:"required"`
		ReturnURL     string           `json:"return_url"`
		PaymentMethod paymentMethodDTO `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pm, err := req.PaymentMethod.toData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	env, err := envelope.New[envelope.SetupMandateRequest, envelope.MandateResponse](
		envelope.FlowSetupMandate,
		s.commonData(""),
		envelope.SetupMandateRequest{PaymentMethod: pm, CustomerID: req.CustomerID, ReturnURL: req.ReturnURL},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.SetupMandate, env, transport.Meta{})
}

func (s *server) defendDisputeHandler(c *gin.Context) {
	var req struct {
		Evidence map[string]string `json:"evidence"`
	}
	_ = c.ShouldBindJSON(&req) // evidence is optional

	env, err := envelope.New[envelope.DefendDisputeRequest, envelope.DisputeResponse](
		envelope.FlowDefendDispute,
		s.commonData(""),
		envelope.DefendDisputeRequest{DisputeID: c.Param("id"), Evidence: req.Evidence},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	run(c, s, s.adapter.DefendDispute, env, transport.Meta{})
}

// webhookHandler verifies the inbound payload before anything else. An
// invalid signature never reaches classification.
func (s *server) webhookHandler(c *gin.Context) {
	mapper := s.adapter.Webhook
	if mapper == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gateway has no webhook support"})
		return
	}
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read payload"})
		return
	}
	if err := mapper.Verify(payload, c.GetHeader("X-Demopay-Signature"), s.adapter.Config.WebhookSecret); err != nil {
		s.logger.Warn().Str("gateway", mapper.Gateway()).Err(err).Msg("webhook signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}

	event, err := mapper.Classify(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transport.CountWebhookEvent(mapper.Gateway(), string(event))

	response := gin.H{"event": event}
	if ref, err := mapper.ExtractReference(payload); err == nil {
		response["reference"] = ref
	}
	if st, ok := event.AttemptStatus(); ok {
		response["attempt_status"] = st
	}
	if rst, ok := event.RefundStatus(); ok {
		response["refund_status"] = rst
	}
	c.JSON(http.StatusOK, response)
}

func (s *server) reportHandler(c *gin.Context) {
	report, err := s.reporter.GenerateRetrospective(s.client.Records())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func setupRouter(s *server) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("payment-connector"))

	router.POST("/payments", s.authorizeHandler)
	router.POST("/payments/:id/capture", s.captureHandler)
	router.POST("/payments/:id/void", s.voidHandler)
	router.POST("/payments/:id/refund", s.refundHandler)
	router.GET("/payments/:id", s.psyncHandler)
	router.GET("/refunds/:id", s.rsyncHandler)
	router.POST("/orders", s.createOrderHandler)
	router.POST("/mandates", s.setupMandateHandler)
	router.POST("/disputes/:id/defend", s.defendDisputeHandler)
	router.POST("/webhooks/demopay", s.webhookHandler)
	router.GET("/report", s.reportHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func gatewayConfigFromEnv() (envelope.GatewayConfig, []byte) {
	baseURL := os.Getenv("DEMOPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.demopay.example"
	}
	cfg := envelope.GatewayConfig{
		Gateway:                           demo.GatewayName,
		BaseURL:                           baseURL,
		Auth:                              envelope.AuthBearer,
		RequiresEmptyObjectForFullCapture: os.Getenv("DEMOPAY_EMPTY_OBJECT_CAPTURE") == "true",
		WebhookSecret:                     os.Getenv("DEMOPAY_WEBHOOK_SECRET"),
	}
	document := fmt.Sprintf(
		`{"gateway": %q, "base_url": %q, "auth": %q, "requires_empty_object_for_full_capture": %t}`,
		cfg.Gateway, cfg.BaseURL, cfg.Auth, cfg.RequiresEmptyObjectForFullCapture,
	)
	return cfg, []byte(document)
}

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "payment-connector").Logger()

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create trace exporter")
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	defer func() {
		ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	cfg, configDocument := gatewayConfigFromEnv()

	cm, err := monitor.NewConfigMonitor(monitor.GatewayConfigSchema)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to compile config schema")
	}
	valid, validationErrors, err := cm.Validate(configDocument)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to validate gateway config")
	}
	if !valid {
		logger.Fatal().Str("details", monitor.FormatErrors(validationErrors)).Msg("gateway config rejected")
	}

	adapter, err := demo.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct gateway adapter")
	}

	s := &server{
		adapter:  adapter,
		client:   transport.NewClient(nil, nil, logger),
		reporter: reporting.NewRetrospectiveReporter(),
		logger:   logger,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info().Str("port", port).Msg("starting server")
	if err := setupRouter(s).Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("failed to run server")
	}
}
