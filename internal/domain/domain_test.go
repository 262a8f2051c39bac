package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{name: "whole amount", amount: "100"},
		{name: "two decimals", amount: "0.01"},
		{name: "trailing zero beyond scale", amount: "12.500"},
		{name: "zero", amount: "0", wantErr: true},
		{name: "negative", amount: "-5.00", wantErr: true},
		{name: "three decimals", amount: "1.005", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tc.amount))
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransferKindIsValid(t *testing.T) {
	for _, k := range []TransferKind{TransferKindIMPS, TransferKindNEFT, TransferKindRTGS, TransferKindUPI, TransferKindMobile} {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, TransferKind("SWIFT").IsValid())
	assert.False(t, TransferKind("imps").IsValid())
	assert.False(t, TransferKind("").IsValid())
}

func TestAccountStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AccountStatus
		want     bool
	}{
		{AccountStatusActive, AccountStatusSuspended, true},
		{AccountStatusSuspended, AccountStatusActive, true},
		{AccountStatusActive, AccountStatusClosed, true},
		{AccountStatusSuspended, AccountStatusClosed, true},
		{AccountStatusClosed, AccountStatusActive, false},
		{AccountStatusClosed, AccountStatusSuspended, false},
		{AccountStatusActive, AccountStatusActive, false},
		{AccountStatusActive, AccountStatus("frozen"), false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestTransferStatusIsTerminal(t *testing.T) {
	assert.False(t, TransferStatusPending.IsTerminal())
	assert.True(t, TransferStatusCompleted.IsTerminal())
	assert.True(t, TransferStatusFailed.IsTerminal())
	assert.True(t, TransferStatusCancelled.IsTerminal())
}
