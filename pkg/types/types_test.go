package types

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxpayerID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"CZ00000019", true},
		{"CZ1212121218", true},
		{"CZ0000001", false},     // 7 digits
		{"CZ00000000019", false}, // 11 digits
		{"SK00000019", false},
		{"cz00000019", false},
		{"", false},
	}
	for _, tt := range tests {
		id, err := NewTaxpayerID(tt.value)
		if tt.ok {
			require.NoError(t, err, tt.value)
			assert.Equal(t, tt.value, id.String())
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}

func TestPremisesIDRange(t *testing.T) {
	for _, v := range []int{1, 141, 999999} {
		id, err := NewPremisesID(v)
		require.NoError(t, err)
		assert.Equal(t, v, id.Int())
	}
	for _, v := range []int{0, -1, 1000000} {
		_, err := NewPremisesID(v)
		assert.Error(t, err)
	}
}

func TestRegisterAndReceiptCharset(t *testing.T) {
	_, err := NewRegisterID("1patro-vpravo")
	require.NoError(t, err)
	_, err = NewReceiptSeq("0/6460/ZQ42")
	require.NoError(t, err)

	// Diacritics are outside the restricted set.
	_, err = NewRegisterID("pokladna-č1")
	assert.Error(t, err)

	_, err = NewRegisterID(strings.Repeat("a", 21))
	assert.Error(t, err)
	_, err = NewReceiptSeq(strings.Repeat("a", 25))
	assert.NoError(t, err)
	_, err = NewReceiptSeq(strings.Repeat("a", 26))
	assert.Error(t, err)
}

func TestAmountRendering(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100", "100.00"},
		{"0.1", "0.10"},
		{"3411.234", "3411.23"},
		{"-45.5", "-45.50"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		a, err := NewAmountFromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, a.String())
	}
}

func TestAmountRange(t *testing.T) {
	_, err := NewAmountFromString("99999999.99")
	assert.NoError(t, err)
	_, err = NewAmountFromString("-99999999.99")
	assert.NoError(t, err)

	// The bound itself is excluded.
	_, err = NewAmount(decimal.NewFromInt(100000000))
	assert.Error(t, err)
	_, err = NewAmount(decimal.NewFromInt(-100000000))
	assert.Error(t, err)

	_, err = NewAmountFromString("not-a-number")
	assert.Error(t, err)
}

func TestTimestampRendering(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	ts := NewTimestamp(time.Date(2019, 1, 4, 16, 41, 24, 987654321, loc))
	assert.Equal(t, "2019-01-04T16:41:24+02:00", ts.String())

	parsed, err := ParseTimestamp("2019-01-04T16:41:24+02:00")
	require.NoError(t, err)
	assert.Equal(t, ts.String(), parsed.String())

	_, err = ParseTimestamp("2019-01-04 16:41:24")
	assert.Error(t, err)
}

func TestMessageUUID(t *testing.T) {
	_, err := NewMessageUUID("b3a09b52-7c87-4014-a496-4c7a53cf9125")
	assert.NoError(t, err)

	// Wrong version nibble.
	_, err = NewMessageUUID("b3a09b52-7c87-1014-a496-4c7a53cf9125")
	assert.Error(t, err)
	// Wrong variant nibble.
	_, err = NewMessageUUID("b3a09b52-7c87-4014-c496-4c7a53cf9125")
	assert.Error(t, err)
	_, err = NewMessageUUID("b3a09b52")
	assert.Error(t, err)
}

func TestPKP(t *testing.T) {
	valid := strings.Repeat("A", 342) + "=="
	pkp, err := NewPKP(valid)
	require.NoError(t, err)
	assert.Len(t, pkp.Bytes(), 256)

	_, err = NewPKP(strings.Repeat("A", 344))
	assert.Error(t, err, "missing padding")
	_, err = NewPKP(strings.Repeat("A", 10) + "==")
	assert.Error(t, err, "wrong length")
	_, err = NewPKP(strings.Repeat("!", 342) + "==")
	assert.Error(t, err, "not base64")
}

func TestBKP(t *testing.T) {
	_, err := NewBKP("01234567-89ABCDEF-01234567-89ABCDEF-0123ABCD")
	assert.NoError(t, err)

	_, err = NewBKP("01234567-89abcdef-01234567-89ABCDEF-0123ABCD")
	assert.Error(t, err, "lowercase")
	_, err = NewBKP("01234567-89ABCDEF-01234567-89ABCDEF")
	assert.Error(t, err, "four groups")
}

func TestFIK(t *testing.T) {
	_, err := NewFIK("b3a09b52-7c87-4014-a496-4c7a53cf9125-03")
	assert.NoError(t, err)

	_, err = NewFIK("b3a09b52-7c87-4014-a496-4c7a53cf9125")
	assert.Error(t, err, "missing suffix")
	_, err = NewFIK("b3a09b52-7c87-1014-a496-4c7a53cf9125-03")
	assert.Error(t, err, "wrong version nibble")
}

func TestCodes(t *testing.T) {
	for _, v := range []int{-999, 0, 999} {
		_, err := NewErrorCode(v)
		assert.NoError(t, err)
	}
	_, err := NewErrorCode(-1000)
	assert.Error(t, err)

	_, err = NewWarningCode(1)
	assert.NoError(t, err)
	_, err = NewWarningCode(0)
	assert.Error(t, err)
}

func TestValidationErrorShape(t *testing.T) {
	_, err := NewTaxpayerID("bogus")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "taxpayer id", verr.Field)
	assert.Contains(t, verr.Error(), "taxpayer id")
}

func TestFormatBool(t *testing.T) {
	if FormatBool(true) != "true" || FormatBool(false) != "false" {
		t.Fatal("boolean rendering must match the schema lexical form")
	}
}
