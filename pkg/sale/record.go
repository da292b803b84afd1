package sale

import (
	"github.com/openfiscal/go-eet/pkg/types"
)

// State tracks a record through the delivery lifecycle.
type State int

const (
	// Unsent means no submission has been attempted yet.
	Unsent State = iota
	// PendingRetry means the last attempt failed at the transport or
	// verification layer and the record sits in the retry queue.
	PendingRetry
	// SentSuccess means the authority issued a FIK. Terminal.
	SentSuccess
	// SentRejected means the authority answered with an error payload.
	// Terminal; resubmitting a rejected sale is a business decision
	// outside this library.
	SentRejected
)

func (s State) String() string {
	switch s {
	case PendingRetry:
		return "pending-retry"
	case SentSuccess:
		return "sent-success"
	case SentRejected:
		return "sent-rejected"
	default:
		return "unsent"
	}
}

// Header is the message header of one registration (Hlavicka).
type Header struct {
	UUID            types.MessageUUID
	Sent            types.Timestamp
	FirstSubmission bool
	Verification    bool
}

// TaxBreakdown carries the optional tax-category amounts of the data
// section. Nil fields are omitted from the wire form entirely, never
// emitted as empty attributes.
type TaxBreakdown struct {
	ExemptBase             *types.Amount // zakl_nepodl_dph
	StandardBase           *types.Amount // zakl_dan1
	StandardTax            *types.Amount // dan1
	FirstReducedBase       *types.Amount // zakl_dan2
	FirstReducedTax        *types.Amount // dan2
	SecondReducedBase      *types.Amount // zakl_dan3
	SecondReducedTax       *types.Amount // dan3
	TravelService          *types.Amount // cest_sluz
	UsedGoodsStandard      *types.Amount // pouzit_zboz1
	UsedGoodsFirstReduced  *types.Amount // pouzit_zboz2
	UsedGoodsSecondReduced *types.Amount // pouzit_zboz3
	VoucherIssued          *types.Amount // urceno_cerp_zuct
	VoucherRedeemed        *types.Amount // cerp_zuct
}

// Attrs lists the non-nil amounts as (schema attribute, canonical value)
// pairs in schema order.
func (t *TaxBreakdown) Attrs() [][2]string {
	named := []struct {
		name  string
		value *types.Amount
	}{
		{"zakl_nepodl_dph", t.ExemptBase},
		{"zakl_dan1", t.StandardBase},
		{"dan1", t.StandardTax},
		{"zakl_dan2", t.FirstReducedBase},
		{"dan2", t.FirstReducedTax},
		{"zakl_dan3", t.SecondReducedBase},
		{"dan3", t.SecondReducedTax},
		{"cest_sluz", t.TravelService},
		{"pouzit_zboz1", t.UsedGoodsStandard},
		{"pouzit_zboz2", t.UsedGoodsFirstReduced},
		{"pouzit_zboz3", t.UsedGoodsSecondReduced},
		{"urceno_cerp_zuct", t.VoucherIssued},
		{"cerp_zuct", t.VoucherRedeemed},
	}
	var attrs [][2]string
	for _, n := range named {
		if n.value != nil {
			attrs = append(attrs, [2]string{n.name, n.value.String()})
		}
	}
	return attrs
}

// Data is the sale data section of one registration (Trzba Data).
type Data struct {
	Taxpayer   types.TaxpayerID
	Delegating types.TaxpayerID // zero when no delegation
	Premises   types.PremisesID
	Register   types.RegisterID
	Receipt    types.ReceiptSeq
	SaleTime   types.Timestamp
	Total      types.Amount
	Breakdown  TaxBreakdown
	Simplified bool // reporting regime: false = standard, true = simplified
}

// Record is one reportable transaction plus its header and control codes.
//
// A Record is mutated by exactly two collaborators: the envelope codec
// stamps the header uuid/timestamp and the fiscal codes, and the delivery
// scheduler transitions the state. Once a terminal state is reached the
// record never changes again.
type Record struct {
	header   Header
	data     Data
	pkp      types.PKP
	bkp      types.BKP
	state    State
	response *Response
}

// Header returns the current message header.
func (r *Record) Header() Header { return r.header }

// Data returns the sale data section.
func (r *Record) Data() Data { return r.data }

// PKP returns the long fiscal code; zero until the first build.
func (r *Record) PKP() types.PKP { return r.pkp }

// BKP returns the short fiscal code; zero until the first build.
func (r *Record) BKP() types.BKP { return r.bkp }

// State returns the delivery state.
func (r *Record) State() State { return r.state }

// Response returns the authority's reply once a terminal state is reached.
func (r *Record) Response() *Response { return r.response }

// HasCodes reports whether the fiscal codes have been computed.
func (r *Record) HasCodes() bool { return !r.pkp.IsZero() }

// StampHeader sets the message uuid on first build and refreshes the send
// timestamp on every build. The uuid, once assigned, stays stable across
// retries; only the timestamp tracks the attempt.
func (r *Record) StampHeader(uuid types.MessageUUID, sent types.Timestamp) {
	if r.header.UUID.IsZero() {
		r.header.UUID = uuid
	}
	r.header.Sent = sent
}

// SetCodes stores the fiscal codes. They are computed exactly once, before
// the first transmission, and must never be recomputed: the signed text has
// to stay identical across retry attempts.
func (r *Record) SetCodes(pkp types.PKP, bkp types.BKP) {
	if r.HasCodes() {
		return
	}
	r.pkp = pkp
	r.bkp = bkp
}

// MarkRetry records a failed attempt: the first-submission flag drops and
// the record becomes eligible for the retry queue.
func (r *Record) MarkRetry() {
	r.header.FirstSubmission = false
	r.state = PendingRetry
}

// MarkSuccess transitions to the terminal accepted state.
func (r *Record) MarkSuccess(resp *Response) {
	r.state = SentSuccess
	r.response = resp
}

// MarkRejected transitions to the terminal rejected state.
func (r *Record) MarkRejected(resp *Response) {
	r.state = SentRejected
	r.response = resp
}

// Terminal reports whether the authority (or its definitive answer) has
// settled this record.
func (r *Record) Terminal() bool {
	return r.state == SentSuccess || r.state == SentRejected
}
