package sale

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/go-eet/pkg/types"
)

func TestStampHeaderKeepsUUIDStable(t *testing.T) {
	factory := NewFactory(playgroundConfig(t))
	rec, err := factory.NewRecord("42", "236.00")
	require.NoError(t, err)

	first, err := types.NewMessageUUID("b3a09b52-7c87-4014-a496-4c7a53cf9125")
	require.NoError(t, err)
	second, err := types.NewMessageUUID("11111111-2222-4333-8444-555555555555")
	require.NoError(t, err)

	t1 := types.NewTimestamp(time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC))
	t2 := types.NewTimestamp(time.Date(2026, 3, 11, 12, 5, 0, 0, time.UTC))

	rec.StampHeader(first, t1)
	rec.StampHeader(second, t2)

	// The uuid survives rebuilds; only the send timestamp tracks attempts.
	assert.Equal(t, first.String(), rec.Header().UUID.String())
	assert.Equal(t, t2.String(), rec.Header().Sent.String())
}

func TestSetCodesComputedOnce(t *testing.T) {
	factory := NewFactory(playgroundConfig(t))
	rec, err := factory.NewRecord("42", "236.00")
	require.NoError(t, err)
	assert.False(t, rec.HasCodes())

	pkp1, err := types.NewPKP(strings.Repeat("A", 342) + "==")
	require.NoError(t, err)
	bkp1, err := types.NewBKP("01234567-89ABCDEF-01234567-89ABCDEF-01234567")
	require.NoError(t, err)
	pkp2, err := types.NewPKP(strings.Repeat("B", 342) + "==")
	require.NoError(t, err)
	bkp2, err := types.NewBKP("FFFFFFFF-89ABCDEF-01234567-89ABCDEF-01234567")
	require.NoError(t, err)

	rec.SetCodes(pkp1, bkp1)
	require.True(t, rec.HasCodes())

	rec.SetCodes(pkp2, bkp2)
	assert.Equal(t, pkp1.String(), rec.PKP().String())
	assert.Equal(t, bkp1.String(), rec.BKP().String())
}

func TestResponseAccessors(t *testing.T) {
	fik, err := types.NewFIK("b3a09b52-7c87-4014-a496-4c7a53cf9125-03")
	require.NoError(t, err)

	ok := &Response{Confirmation: &Confirmation{FIK: fik, Test: true}}
	assert.True(t, ok.OK())
	assert.Equal(t, fik.String(), ok.FIK().String())

	code, err := types.NewErrorCode(4)
	require.NoError(t, err)
	rejected := &Response{Rejection: &Rejection{Code: code, Message: "invalid signature"}}
	assert.False(t, rejected.OK())
}
