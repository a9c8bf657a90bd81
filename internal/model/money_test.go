package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Amount
		wantErr bool
	}{
		{name: "integer", in: "1500", want: 150000},
		{name: "two decimals", in: "100.25", want: 10025},
		{name: "one decimal", in: "0.5", want: 50},
		{name: "spaces", in: " 12.00 ", want: 1200},
		{name: "negative", in: "-3.10", want: -310},
		{name: "three decimals", in: "1.005", wantErr: true},
		{name: "garbage", in: "ten", wantErr: true},
		{name: "max int64 cents", in: "92233720368547758.07", want: Amount(math.MaxInt64)},
		{name: "just above int64", in: "92233720368547758.08", wantErr: true},
		{name: "wraps to small value", in: "184467440737095531.15", wantErr: true},
		{name: "wraps to one cent", in: "184467440737095516.17", wantErr: true},
		{name: "below min int64", in: "-92233720368547758.09", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
	}{A: 150050})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1500.50}`, string(b))

	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"20.10","b":7}`), &v))
	assert.Equal(t, Amount(2010), v.A)
	assert.Equal(t, Units(7), v.B)
}

func TestRateOf(t *testing.T) {
	rate, err := ParseRate("5.00")
	require.NoError(t, err)
	assert.Equal(t, Rate(500), rate)

	assert.Equal(t, Units(75), rate.Of(Units(1500)))
	assert.Equal(t, Amount(0), Rate(0).Of(Units(1500)))
	// 5 % от 10.01 = 0.5005, округляется до 0.50
	assert.Equal(t, Amount(50), rate.Of(Amount(1001)))
	assert.Equal(t, "5.00", rate.String())
}

func TestParseRate_Invalid(t *testing.T) {
	for _, in := range []string{"-1", "100.01", "1.001", "abc"} {
		_, err := ParseRate(in)
		assert.Error(t, err, in)
	}
}
