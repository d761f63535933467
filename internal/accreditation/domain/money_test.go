package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := map[string]Money{
		"150.75": 15075,
		"150.7":  15070,
		"150":    15000,
		"0.01":   1,
		"-2.50":  -250,
	}
	for raw, want := range cases {
		got, err := ParseMoney(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "1.234", ".5", "abc", "1e3", "1.-5", "--5", "-+5", "+5", "1.+5", "1. 5", "1_000"} {
		_, err := ParseMoney(raw)
		assert.ErrorIs(t, err, ErrInvalidMoney, raw)
	}
}

func TestMoneyJSONRejectsSignedParts(t *testing.T) {
	var req struct {
		Amount Money `json:"amount"`
	}
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"amount":"--5"}`), &req), ErrInvalidMoney)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"amount":"1.+5"}`), &req), ErrInvalidMoney)
	assert.Equal(t, Money(0), req.Amount)
}

func TestMoneyJSON(t *testing.T) {
	var req struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":150.75}`), &req))
	assert.Equal(t, Money(15075), req.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"9.5"}`), &req))
	assert.Equal(t, Money(950), req.Amount)

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":9.50}`, string(out))
}
