package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

func TestStatementFilter_ToEntryFilter(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    StatementFilter
		wantType  *domain.EntryType
		wantCat   *domain.EntryCategory
		wantSince *time.Time
		wantLimit int
		wantErr   bool
	}{
		{
			name:      "defaults",
			filter:    StatementFilter{},
			wantLimit: defaultStatementLimit,
		},
		{
			name:      "credit this week",
			filter:    StatementFilter{Type: "credit", Period: "week", Limit: 5},
			wantType:  ptr(domain.EntryTypeCredit),
			wantSince: ptr(midnight.AddDate(0, 0, -7)),
			wantLimit: 5,
		},
		{
			name:      "debit today",
			filter:    StatementFilter{Type: "debit", Period: "today"},
			wantType:  ptr(domain.EntryTypeDebit),
			wantSince: ptr(midnight),
			wantLimit: defaultStatementLimit,
		},
		{
			name:      "transfers over three months",
			filter:    StatementFilter{Type: "transfer", Period: "3months"},
			wantCat:   ptr(domain.EntryCategoryTransfer),
			wantSince: ptr(time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)),
			wantLimit: defaultStatementLimit,
		},
		{
			name:      "year",
			filter:    StatementFilter{Period: "year"},
			wantSince: ptr(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)),
			wantLimit: defaultStatementLimit,
		},
		{
			name:      "limit capped",
			filter:    StatementFilter{Type: "all", Period: "all", Limit: 1000},
			wantLimit: maxStatementLimit,
		},
		{name: "unknown type", filter: StatementFilter{Type: "refund"}, wantErr: true},
		{name: "unknown period", filter: StatementFilter{Period: "decade"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.filter.toEntryFilter(now)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, got.EntryType)
			assert.Equal(t, tc.wantCat, got.Category)
			assert.Equal(t, tc.wantSince, got.Since)
			assert.Nil(t, got.Until)
			assert.Equal(t, tc.wantLimit, got.Limit)
		})
	}
}

func TestStatementFilter_NegativeOffset(t *testing.T) {
	got, err := StatementFilter{Offset: -3}.toEntryFilter(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Offset)
}

func TestGenerateAccountNumber(t *testing.T) {
	for range 50 {
		n, err := generateAccountNumber()
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9][0-9]{11}$`, n)
	}
}

func ptr[T any](v T) *T { return &v }
