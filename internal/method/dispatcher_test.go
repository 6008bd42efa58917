package method

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleData returns one concrete variant per kind, for exhaustive dispatch
// coverage.
func sampleData(kind Kind) Data {
	switch kind {
	case KindCard:
		return Card{Number: "4242424242424242", ExpiryMonth: "12", ExpiryYear: "2030", CVC: "123"}
	case KindWallet:
		return Wallet{Type: WalletApplePay, Token: "tok_wallet"}
	case KindBankTransfer:
		return BankTransfer{Scheme: TransferSepa, IBAN: "DE89370400440532013000"}
	case KindBankRedirect:
		return BankRedirect{Scheme: RedirectIdeal, Issuer: "INGBNL2A"}
	case KindPayLater:
		return PayLater{Issuer: PayLaterKlarna}
	case KindVoucher:
		return Voucher{Issuer: VoucherBoleto}
	case KindCrypto:
		return Crypto{Currency: "BTC"}
	case KindGiftCard:
		return GiftCard{Number: "6035"}
	case KindCardRedirect:
		return CardRedirect{}
	default:
		return nil
	}
}

func TestAllKinds_CoversEveryVariant(t *testing.T) {
	kinds := AllKinds()
	assert.Len(t, kinds, 9)
	seen := make(map[Kind]bool)
	for _, kind := range kinds {
		data := sampleData(kind)
		require.NotNil(t, data, "no sample variant for kind %q", kind)
		assert.Equal(t, kind, data.Kind())
		assert.False(t, seen[kind], "kind %q listed twice", kind)
		seen[kind] = true
	}
}

func TestNewDispatcher_Panics(t *testing.T) {
	assert.Panics(t, func() { NewDispatcher("", nil) })
	assert.Panics(t, func() {
		NewDispatcher("demopay", map[Kind]Branch{KindCard: nil})
	})
}

func TestDispatch_RoutesToRegisteredBranch(t *testing.T) {
	d := NewDispatcher("demopay", map[Kind]Branch{
		KindCard: func(data Data, ctx FlowContext) (Fragment, error) {
			card := data.(Card)
			return Fragment{"number": card.Number, "flow": ctx.Flow}, nil
		},
	})

	fragment, err := d.Dispatch(Card{Number: "4242"}, FlowContext{Gateway: "demopay", Flow: "authorize"})
	require.NoError(t, err)
	assert.Equal(t, "4242", fragment["number"])
	assert.Equal(t, "authorize", fragment["flow"])
}

func TestDispatch_UnregisteredKindNamesGatewayAndMethod(t *testing.T) {
	d := NewDispatcher("demopay", map[Kind]Branch{
		KindCard: func(Data, FlowContext) (Fragment, error) { return Fragment{}, nil },
	})

	_, err := d.Dispatch(Crypto{}, FlowContext{})
	require.Error(t, err)

	var notSupported *NotSupportedError
	require.True(t, errors.As(err, &notSupported))
	assert.Equal(t, "demopay", notSupported.Gateway)
	assert.Equal(t, KindCrypto, notSupported.Method)
	assert.Contains(t, err.Error(), "demopay")
	assert.Contains(t, err.Error(), "crypto")
}

func TestDispatch_EveryKindEitherDispatchesOrFailsLoudly(t *testing.T) {
	// A partial branch table must never fall through silently: every kind in
	// the closed set either runs its branch or produces NotSupportedError.
	branch := func(Data, FlowContext) (Fragment, error) { return Fragment{"ok": true}, nil }
	d := NewDispatcher("demopay", map[Kind]Branch{
		KindCard:   branch,
		KindWallet: branch,
	})

	for _, kind := range AllKinds() {
		fragment, err := d.Dispatch(sampleData(kind), FlowContext{})
		if d.Supports(kind) {
			assert.NoError(t, err, "kind %q", kind)
			assert.NotNil(t, fragment, "kind %q", kind)
		} else {
			var notSupported *NotSupportedError
			require.Error(t, err, "kind %q", kind)
			require.True(t, errors.As(err, &notSupported), "kind %q", kind)
			assert.Equal(t, kind, notSupported.Method)
		}
	}
}

func TestDispatch_NilDataIsRejected(t *testing.T) {
	d := NewDispatcher("demopay", nil)
	_, err := d.Dispatch(nil, FlowContext{})
	assert.Error(t, err)
}

func TestSupports(t *testing.T) {
	d := NewDispatcher("demopay", map[Kind]Branch{
		KindCard: func(Data, FlowContext) (Fragment, error) { return nil, nil },
	})
	assert.True(t, d.Supports(KindCard))
	assert.False(t, d.Supports(KindVoucher))
	assert.Equal(t, "demopay", d.Gateway())
}
