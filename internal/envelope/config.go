package envelope

// AuthScheme selects how an adapter authenticates against its gateway.
// The scheme is per-adapter configuration, never hardcoded in flow logic.
type AuthScheme string

const (
	AuthBearer       AuthScheme = "bearer"
	AuthBasic        AuthScheme = "basic"
	AuthHMAC         AuthScheme = "hmac"
	AuthBodyEmbedded AuthScheme = "body_embedded"
)

// Credentials holds the per-gateway secrets used to build auth material.
// Secrets travel inside envelope common data for the duration of one call
// and must never be logged or retained past it.
type Credentials struct {
	APIKey          string // bearer token or HMAC key id
	APISecret       string // basic password, HMAC secret, or body-embedded secret
	MerchantAccount string // gateway-side merchant identifier, where required
}

// GatewayConfig is the static, read-only configuration a ConnectorAdapter is
// constructed with. Instances are shared freely across concurrent calls.
type GatewayConfig struct {
	Gateway string // gateway identifier, e.g. "demopay"
	BaseURL string
	Auth    AuthScheme

	// RequiresEmptyObjectForFullCapture selects the gateway's settlement
	// body convention: a literal "{}" for a full capture instead of an
	// absent payload. The two are never interchangeable.
	RequiresEmptyObjectForFullCapture bool

	// WebhookSecret is the shared secret for inbound webhook signature
	// verification.
	WebhookSecret string
}
