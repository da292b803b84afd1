package sale

import (
	"time"

	"github.com/openfiscal/go-eet/pkg/types"
)

// Clock supplies the current time. Injected so fiscal-code computation and
// tests stay deterministic.
type Clock func() time.Time

// Factory produces protocol-legal records bound to one Config.
type Factory struct {
	config *Config
	clock  Clock
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithClock replaces the wall clock, typically in tests.
func WithClock(clock Clock) FactoryOption {
	return func(f *Factory) { f.clock = clock }
}

// NewFactory binds a record factory to the operator configuration.
func NewFactory(config *Config, opts ...FactoryOption) *Factory {
	f := &Factory{config: config, clock: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Config returns the bound configuration.
func (f *Factory) Config() *Config { return f.config }

type recordDraft struct {
	saleTime     *time.Time
	verification bool
	simplified   bool
	breakdown    TaxBreakdown
	errs         []error
}

// RecordOption supplies an optional field of a new record.
type RecordOption func(*recordDraft)

// WithSaleTime overrides the sale timestamp; default is the factory clock.
func WithSaleTime(t time.Time) RecordOption {
	return func(d *recordDraft) { d.saleTime = &t }
}

// WithVerification flags the registration as a non-binding verification
// submission (overeni). The authority checks but does not register it.
func WithVerification() RecordOption {
	return func(d *recordDraft) { d.verification = true }
}

// WithSimplifiedRegime reports the sale under the simplified regime.
func WithSimplifiedRegime() RecordOption {
	return func(d *recordDraft) { d.simplified = true }
}

func (d *recordDraft) amount(value string) *types.Amount {
	a, err := types.NewAmountFromString(value)
	if err != nil {
		d.errs = append(d.errs, err)
		return nil
	}
	return &a
}

// WithExemptBase sets the base amount not subject to VAT.
func WithExemptBase(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.ExemptBase = d.amount(value) }
}

// WithStandardRate sets the base and tax amounts at the standard VAT rate.
func WithStandardRate(base, tax string) RecordOption {
	return func(d *recordDraft) {
		d.breakdown.StandardBase = d.amount(base)
		d.breakdown.StandardTax = d.amount(tax)
	}
}

// WithFirstReducedRate sets the base and tax amounts at the first reduced rate.
func WithFirstReducedRate(base, tax string) RecordOption {
	return func(d *recordDraft) {
		d.breakdown.FirstReducedBase = d.amount(base)
		d.breakdown.FirstReducedTax = d.amount(tax)
	}
}

// WithSecondReducedRate sets the base and tax amounts at the second reduced rate.
func WithSecondReducedRate(base, tax string) RecordOption {
	return func(d *recordDraft) {
		d.breakdown.SecondReducedBase = d.amount(base)
		d.breakdown.SecondReducedTax = d.amount(tax)
	}
}

// WithTravelService sets the travel-service margin scheme amount.
func WithTravelService(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.TravelService = d.amount(value) }
}

// WithUsedGoodsStandard sets the used-goods margin amount, standard rate.
func WithUsedGoodsStandard(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.UsedGoodsStandard = d.amount(value) }
}

// WithUsedGoodsFirstReduced sets the used-goods margin amount, first reduced rate.
func WithUsedGoodsFirstReduced(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.UsedGoodsFirstReduced = d.amount(value) }
}

// WithUsedGoodsSecondReduced sets the used-goods margin amount, second reduced rate.
func WithUsedGoodsSecondReduced(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.UsedGoodsSecondReduced = d.amount(value) }
}

// WithVoucherIssued sets the amount designated for later voucher redemption.
func WithVoucherIssued(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.VoucherIssued = d.amount(value) }
}

// WithVoucherRedeemed sets the amount settled by voucher redemption.
func WithVoucherRedeemed(value string) RecordOption {
	return func(d *recordDraft) { d.breakdown.VoucherRedeemed = d.amount(value) }
}

// NewRecord builds a record for one sale. Receipt and total are parsed
// through their value types, so out-of-range amounts and malformed inputs
// fail here, long before any network activity.
func (f *Factory) NewRecord(receipt string, total string, opts ...RecordOption) (*Record, error) {
	seq, err := types.NewReceiptSeq(receipt)
	if err != nil {
		return nil, err
	}
	amount, err := types.NewAmountFromString(total)
	if err != nil {
		return nil, err
	}

	var d recordDraft
	for _, opt := range opts {
		opt(&d)
	}
	if len(d.errs) > 0 {
		return nil, d.errs[0]
	}

	saleTime := f.clock()
	if d.saleTime != nil {
		saleTime = *d.saleTime
	}

	return &Record{
		header: Header{
			FirstSubmission: true,
			Verification:    d.verification,
		},
		data: Data{
			Taxpayer:   f.config.Taxpayer(),
			Delegating: f.config.Delegating(),
			Premises:   f.config.Premises(),
			Register:   f.config.Register(),
			Receipt:    seq,
			SaleTime:   types.NewTimestamp(saleTime),
			Total:      amount,
			Breakdown:  d.breakdown,
			Simplified: d.simplified,
		},
		state: Unsent,
	}, nil
}
