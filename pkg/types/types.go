package types

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError reports a field value that violates its schema invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	taxpayerPattern = regexp.MustCompile(`^CZ[0-9]{8,10}$`)
	// Restricted character set shared by register and receipt identifiers.
	identifierPattern = regexp.MustCompile(`^[0-9a-zA-Z.,:;/#\-_ ]+$`)
	uuidPattern       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	bkpPattern        = regexp.MustCompile(`^[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}$`)
	fikPattern        = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}-[0-9a-fA-F]{2}$`)
)

// TaxpayerID is a Czech tax identification number (DIČ), e.g. "CZ00000019".
type TaxpayerID struct {
	value string
}

// NewTaxpayerID validates a DIČ against the CZ[0-9]{8,10} schema pattern.
func NewTaxpayerID(value string) (TaxpayerID, error) {
	if !taxpayerPattern.MatchString(value) {
		return TaxpayerID{}, &ValidationError{Field: "taxpayer id", Reason: fmt.Sprintf("%q does not match CZ[0-9]{8,10}", value)}
	}
	return TaxpayerID{value: value}, nil
}

func (t TaxpayerID) String() string { return t.value }

// IsZero reports whether the id is the unset zero value.
func (t TaxpayerID) IsZero() bool { return t.value == "" }

// PremisesID identifies a business premises, range 1 to 999999.
type PremisesID struct {
	value int
}

// NewPremisesID validates the premises number range.
func NewPremisesID(value int) (PremisesID, error) {
	if value < 1 || value > 999999 {
		return PremisesID{}, &ValidationError{Field: "premises id", Reason: fmt.Sprintf("%d outside range [1, 999999]", value)}
	}
	return PremisesID{value: value}, nil
}

func (p PremisesID) Int() int       { return p.value }
func (p PremisesID) String() string { return fmt.Sprintf("%d", p.value) }

// RegisterID identifies a cash register within a premises, at most 20
// characters from the schema's restricted set.
type RegisterID struct {
	value string
}

// NewRegisterID validates length and character set.
func NewRegisterID(value string) (RegisterID, error) {
	if len(value) < 1 || len(value) > 20 || !identifierPattern.MatchString(value) {
		return RegisterID{}, &ValidationError{Field: "register id", Reason: fmt.Sprintf("%q is not 1-20 chars of [0-9a-zA-Z.,:;/#-_ ]", value)}
	}
	return RegisterID{value: value}, nil
}

func (r RegisterID) String() string { return r.value }

// ReceiptSeq is the receipt sequence number, at most 25 characters from the
// schema's restricted set.
type ReceiptSeq struct {
	value string
}

// NewReceiptSeq validates length and character set.
func NewReceiptSeq(value string) (ReceiptSeq, error) {
	if len(value) < 1 || len(value) > 25 || !identifierPattern.MatchString(value) {
		return ReceiptSeq{}, &ValidationError{Field: "receipt seq", Reason: fmt.Sprintf("%q is not 1-25 chars of [0-9a-zA-Z.,:;/#-_ ]", value)}
	}
	return ReceiptSeq{value: value}, nil
}

func (r ReceiptSeq) String() string { return r.value }

// Amount is a monetary value in CZK, exclusive range
// (-100000000, 100000000). It renders with exactly two fraction digits,
// which is what both the signed text and the XML attributes require.
type Amount struct {
	value decimal.Decimal
}

var amountLimit = decimal.NewFromInt(100000000)

// NewAmount validates the schema range.
func NewAmount(value decimal.Decimal) (Amount, error) {
	if value.Abs().GreaterThanOrEqual(amountLimit) {
		return Amount{}, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%s outside range (-100000000, 100000000)", value)}
	}
	return Amount{value: value}, nil
}

// NewAmountFromString parses a decimal string and validates the range.
func NewAmountFromString(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a decimal number", value)}
	}
	return NewAmount(d)
}

// NewAmountFromFloat converts a float64 and validates the range.
func NewAmountFromFloat(value float64) (Amount, error) {
	return NewAmount(decimal.NewFromFloat(value))
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

// String renders the canonical fixed two-decimal form, e.g. "100.00".
func (a Amount) String() string { return a.value.StringFixed(2) }

// Timestamp is an instant with timezone, rendered as ISO-8601 with second
// precision, e.g. "2019-01-04T16:41:24+02:00".
type Timestamp struct {
	value time.Time
}

// NewTimestamp truncates sub-second precision; the wire form carries seconds.
func NewTimestamp(value time.Time) Timestamp {
	return Timestamp{value: value.Truncate(time.Second)}
}

// ParseTimestamp parses an ISO-8601 instant with offset.
func ParseTimestamp(value string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Timestamp{}, &ValidationError{Field: "timestamp", Reason: fmt.Sprintf("%q is not an ISO-8601 instant", value)}
	}
	return NewTimestamp(t), nil
}

func (t Timestamp) Time() time.Time { return t.value }
func (t Timestamp) IsZero() bool    { return t.value.IsZero() }

func (t Timestamp) String() string {
	return t.value.Format("2006-01-02T15:04:05-07:00")
}

// Mode selects the operating environment.
type Mode int

const (
	// Production registers real sales against the production endpoint.
	Production Mode = iota
	// Playground targets the non-binding test environment.
	Playground
)

func (m Mode) String() string {
	if m == Playground {
		return "playground"
	}
	return "production"
}

// MessageUUID is the textual v4 UUID identifying one registration message.
type MessageUUID struct {
	value string
}

// NewMessageUUID validates the 36-char v4 textual form including the
// version and variant nibbles.
func NewMessageUUID(value string) (MessageUUID, error) {
	if len(value) != 36 || !uuidPattern.MatchString(value) {
		return MessageUUID{}, &ValidationError{Field: "message uuid", Reason: fmt.Sprintf("%q is not a 36-char v4 UUID", value)}
	}
	return MessageUUID{value: value}, nil
}

func (u MessageUUID) String() string { return u.value }
func (u MessageUUID) IsZero() bool   { return u.value == "" }

// PKP is the long fiscal code: the base64 form of the RSA-2048 signature
// over the six canonical sale fields. Always 344 characters ending in
// base64 padding.
type PKP struct {
	value string
}

// NewPKP validates length, alphabet and trailing padding.
func NewPKP(value string) (PKP, error) {
	if len(value) != 344 {
		return PKP{}, &ValidationError{Field: "pkp", Reason: fmt.Sprintf("length %d, want 344", len(value))}
	}
	if !strings.HasSuffix(value, "==") {
		return PKP{}, &ValidationError{Field: "pkp", Reason: "missing base64 padding suffix"}
	}
	if _, err := base64.StdEncoding.DecodeString(value); err != nil {
		return PKP{}, &ValidationError{Field: "pkp", Reason: "not valid base64"}
	}
	return PKP{value: value}, nil
}

func (p PKP) String() string { return p.value }
func (p PKP) IsZero() bool   { return p.value == "" }

// Bytes returns the raw signature bytes the BKP is derived from.
func (p PKP) Bytes() []byte {
	raw, _ := base64.StdEncoding.DecodeString(p.value)
	return raw
}

// BKP is the short fiscal code: five 8-hex-digit uppercase groups joined by
// hyphens, 44 characters.
type BKP struct {
	value string
}

// NewBKP validates the hyphenated uppercase hex form.
func NewBKP(value string) (BKP, error) {
	if len(value) != 44 || !bkpPattern.MatchString(value) {
		return BKP{}, &ValidationError{Field: "bkp", Reason: fmt.Sprintf("%q is not five hyphenated groups of 8 uppercase hex digits", value)}
	}
	return BKP{value: value}, nil
}

func (b BKP) String() string { return b.value }
func (b BKP) IsZero() bool   { return b.value == "" }

// FIK is the fiscal identification code issued by the authority: a v4 UUID
// with a trailing two-hex-digit suffix, 39 characters.
type FIK struct {
	value string
}

// NewFIK validates the 39-char suffixed UUID form.
func NewFIK(value string) (FIK, error) {
	if len(value) != 39 || !fikPattern.MatchString(value) {
		return FIK{}, &ValidationError{Field: "fik", Reason: fmt.Sprintf("%q is not a 39-char suffixed UUID", value)}
	}
	return FIK{value: value}, nil
}

func (f FIK) String() string { return f.value }

// ErrorCode is an authority-reported rejection code, range -999 to 999.
type ErrorCode struct {
	value int
}

// NewErrorCode validates the schema range.
func NewErrorCode(value int) (ErrorCode, error) {
	if value < -999 || value > 999 {
		return ErrorCode{}, &ValidationError{Field: "error code", Reason: fmt.Sprintf("%d outside range [-999, 999]", value)}
	}
	return ErrorCode{value: value}, nil
}

func (e ErrorCode) Int() int       { return e.value }
func (e ErrorCode) String() string { return fmt.Sprintf("%d", e.value) }

// WarningCode is an authority-reported warning code, range 1 to 999.
type WarningCode struct {
	value int
}

// NewWarningCode validates the schema range.
func NewWarningCode(value int) (WarningCode, error) {
	if value < 1 || value > 999 {
		return WarningCode{}, &ValidationError{Field: "warning code", Reason: fmt.Sprintf("%d outside range [1, 999]", value)}
	}
	return WarningCode{value: value}, nil
}

func (w WarningCode) Int() int       { return w.value }
func (w WarningCode) String() string { return fmt.Sprintf("%d", w.value) }

// FormatBool renders a boolean the way the schema's attributes expect.
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
