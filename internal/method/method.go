// Package method defines the closed set of payment method variants a gateway
// request can carry, and the dispatcher that selects the gateway-specific
// transformation branch for each variant.
// The set is sealed: every variant implements the unexported marker method, so
// callers cannot smuggle in a variant the dispatcher has never heard of.
package method

// Kind identifies a payment method variant.
type Kind string

const (
	KindCard         Kind = "card"
	KindWallet       Kind = "wallet"
	KindBankTransfer Kind = "bank_transfer"
	KindBankRedirect Kind = "bank_redirect"
	KindPayLater     Kind = "pay_later"
	KindVoucher      Kind = "voucher"
	KindCrypto       Kind = "crypto"
	KindGiftCard     Kind = "gift_card"
	KindCardRedirect Kind = "card_redirect"
)

// AllKinds enumerates every variant in the closed set. Exhaustiveness tests
// iterate this slice; extending the set means extending this list too.
func AllKinds() []Kind {
	return []Kind{
		KindCard,
		KindWallet,
		KindBankTransfer,
		KindBankRedirect,
		KindPayLater,
		KindVoucher,
		KindCrypto,
		KindGiftCard,
		KindCardRedirect,
	}
}

// Data is the sealed interface over all payment method variants.
// Variants are immutable input data: dispatch branches read and transform
// them, never mutate them.
type Data interface {
	Kind() Kind
	isPaymentMethod()
}

// WalletType identifies the wallet scheme inside a Wallet variant.
type WalletType string

const (
	WalletApplePay       WalletType = "apple_pay"
	WalletGooglePay      WalletType = "google_pay"
	WalletPaypalRedirect WalletType = "paypal_redirect"
	WalletAliPay         WalletType = "ali_pay"
	WalletWeChatPay      WalletType = "we_chat_pay"
)

// BankTransferScheme identifies the rails of a bank transfer.
type BankTransferScheme string

const (
	TransferAch        BankTransferScheme = "ach"
	TransferSepa       BankTransferScheme = "sepa"
	TransferBacs       BankTransferScheme = "bacs"
	TransferMultibanco BankTransferScheme = "multibanco"
	TransferPix        BankTransferScheme = "pix"
)

// BankRedirectScheme identifies the redirect rail of a bank redirect.
type BankRedirectScheme string

const (
	RedirectIdeal      BankRedirectScheme = "ideal"
	RedirectSofort     BankRedirectScheme = "sofort"
	RedirectBlik       BankRedirectScheme = "blik"
	RedirectEps        BankRedirectScheme = "eps"
	RedirectGiropay    BankRedirectScheme = "giropay"
	RedirectPrzelewy24 BankRedirectScheme = "przelewy24"
	RedirectTrustly    BankRedirectScheme = "trustly"
)

// PayLaterIssuer identifies the buy-now-pay-later provider.
type PayLaterIssuer string

const (
	PayLaterKlarna   PayLaterIssuer = "klarna"
	PayLaterAffirm   PayLaterIssuer = "affirm"
	PayLaterAfterpay PayLaterIssuer = "afterpay_clearpay"
)

// VoucherIssuer identifies the cash voucher network.
type VoucherIssuer string

const (
	VoucherBoleto   VoucherIssuer = "boleto"
	VoucherOxxo     VoucherIssuer = "oxxo"
	VoucherAlfamart VoucherIssuer = "alfamart"
)

// Card carries raw card details for a direct card payment.
type Card struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVC         string
	HolderName  string
	Network     string // e.g. "visa", "mastercard"; empty if unknown
}

func (Card) Kind() Kind       { return KindCard }
func (Card) isPaymentMethod() {}

// Wallet carries a tokenized wallet payment.
type Wallet struct {
	Type  WalletType
	Token string // opaque wallet token or session payload
}

func (Wallet) Kind() Kind       { return KindWallet }
func (Wallet) isPaymentMethod() {}

// BankTransfer carries account details for a push/pull bank transfer.
type BankTransfer struct {
	Scheme        BankTransferScheme
	AccountNumber string
	RoutingNumber string // ACH routing, BACS sort code, or empty
	IBAN          string // SEPA only
	HolderName    string
}

func (BankTransfer) Kind() Kind       { return KindBankTransfer }
func (BankTransfer) isPaymentMethod() {}

// BankRedirect carries the issuer selection for a redirect-based bank payment.
type BankRedirect struct {
	Scheme      BankRedirectScheme
	Issuer      string // bank identifier where the scheme requires one (iDEAL, EPS)
	CountryCode string
}

func (BankRedirect) Kind() Kind       { return KindBankRedirect }
func (BankRedirect) isPaymentMethod() {}

// PayLater carries a buy-now-pay-later selection.
type PayLater struct {
	Issuer PayLaterIssuer
	Token  string // issuer session token, if the gateway requires one
}

func (PayLater) Kind() Kind       { return KindPayLater }
func (PayLater) isPaymentMethod() {}

// Voucher carries a cash voucher selection.
type Voucher struct {
	Issuer        VoucherIssuer
	CustomerTaxID string // e.g. CPF for Boleto
	ExpiresInDays int
}

func (Voucher) Kind() Kind       { return KindVoucher }
func (Voucher) isPaymentMethod() {}

// Crypto carries a cryptocurrency payment selection.
type Crypto struct {
	Currency string // e.g. "BTC"; empty lets the gateway choose
	Network  string
}

func (Crypto) Kind() Kind       { return KindCrypto }
func (Crypto) isPaymentMethod() {}

// GiftCard carries gift card credentials.
type GiftCard struct {
	Number string
	PIN    string
}

func (GiftCard) Kind() Kind       { return KindGiftCard }
func (GiftCard) isPaymentMethod() {}

// CardRedirect marks a card payment completed on the gateway's hosted page.
type CardRedirect struct{}

func (CardRedirect) Kind() Kind       { return KindCardRedirect }
func (CardRedirect) isPaymentMethod() {}
