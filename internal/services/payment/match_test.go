package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/models"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
)

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "PREMIUMSPM1234-ABCD", NormalizeDescription("Premium  spm1234-abcd."))
	assert.Equal(t, "CTTNGUYENVANASPY9", NormalizeDescription("CT từ NGUYEN VAN A: spy 9"))
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "PREMIUMSPMA1B2C3D4LVN8XQ", want: "SPMA1B2C3D4LVN8XQ", ok: true},
		{in: "SPYAB-CD12", want: "SPYAB-CD12", ok: true},
		{in: "SPXABC", ok: false},
		{in: "HELLO", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ExtractCode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMatchIntent(t *testing.T) {
	a := &models.Payment{ID: "a", TransactionCode: "SPMA1B2C3D4LVN8XQ"}
	b := &models.Payment{ID: "b", TransactionCode: "SPYFFFF0000LVN8ZZ"}
	pending := []*models.Payment{a, b}

	tests := []struct {
		name        string
		description string
		want        *models.Payment
	}{
		{name: "exact", description: "Premium SPYFFFF0000LVN8ZZ", want: b},
		{name: "case and spaces", description: "premium spma1b2c3d4 lvn8xq", want: a},
		{name: "truncated token is substring of code", description: "SPMA1B2C3D4", want: a},
		{name: "trailing noise absorbed into token", description: "SPYFFFF0000LVN8ZZ FROM NGUYEN VAN A", want: b},
		{name: "no code", description: "salary for may", want: nil},
		{name: "unknown code", description: "SPM99999999ZZZZ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchIntent(tt.description, pending))
		})
	}
}

func TestMatchIntent_EmptyPending(t *testing.T) {
	assert.Nil(t, MatchIntent("Premium SPMA1B2C3D4LVN8XQ", nil))
}

func TestMatchTransaction(t *testing.T) {
	txs := []paymentprovider.Transaction{
		{ID: "1", AmountOut: "2000.00", AmountIn: "0.00", TransactionContent: "SPMABC123"},
		{ID: "2", AmountOut: "0.00", AmountIn: "1500.00", TransactionContent: "SPMABC123"},
		{ID: "3", AmountOut: "0.00", AmountIn: "2000.00", TransactionContent: "Premium spm-abc 123"},
		{ID: "4", AmountOut: "0.00", AmountIn: "5000.00", TransactionContent: "SPYOTHER"},
	}

	tx := MatchTransaction("SPMABC123", 2000, txs)
	require.NotNil(t, tx)
	assert.Equal(t, "3", tx.ID)

	assert.Nil(t, MatchTransaction("SPMABC123", 2500, txs))
	assert.Nil(t, MatchTransaction("SPMNOPE", 1, txs))
	assert.Nil(t, MatchTransaction("", 1, txs))
}
