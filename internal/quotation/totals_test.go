package quotation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name    string
		lines   []ItemInput
		rate    int
		want    Totals
		amounts []int64
	}{
		{
			name:    "standard vat",
			lines:   []ItemInput{{Quantity: 2, UnitPrice: 50000}, {Quantity: 3, UnitPrice: 1500}},
			rate:    DefaultVATRate,
			want:    Totals{Subtotal: 104500, VAT: 7315, Total: 111815},
			amounts: []int64{100000, 4500},
		},
		{
			name:  "rounds half up",
			lines: []ItemInput{{Quantity: 1, UnitPrice: 5}},
			rate:  1000,
			want:  Totals{Subtotal: 5, VAT: 1, Total: 6},
		},
		{
			name:  "rounds down below half",
			lines: []ItemInput{{Quantity: 1, UnitPrice: 15}},
			rate:  DefaultVATRate,
			want:  Totals{Subtotal: 15, VAT: 1, Total: 16},
		},
		{
			name:  "zero rate",
			lines: []ItemInput{{Quantity: 4, UnitPrice: 25}},
			rate:  0,
			want:  Totals{Subtotal: 100, VAT: 0, Total: 100},
		},
		{
			name: "no items",
			rate: DefaultVATRate,
			want: Totals{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, totals, err := Compute(tc.lines, tc.rate)
			require.NoError(t, err)
			assert.Equal(t, tc.want, totals)
			for i, amount := range tc.amounts {
				assert.Equal(t, amount, items[i].Amount)
			}
		})
	}
}

func TestComputeRejectsOutOfRange(t *testing.T) {
	bad := []struct {
		lines []ItemInput
		rate  int
	}{
		{lines: []ItemInput{{Quantity: 0, UnitPrice: 1}}, rate: 700},
		{lines: []ItemInput{{Quantity: 1, UnitPrice: -1}}, rate: 700},
		{lines: []ItemInput{{Quantity: 1, UnitPrice: 1}}, rate: -1},
		{lines: []ItemInput{{Quantity: 1, UnitPrice: 1}}, rate: 10001},
	}
	for _, tc := range bad {
		_, _, err := Compute(tc.lines, tc.rate)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	huge := make([]ItemInput, 10)
	for i := range huge {
		huge[i] = ItemInput{Quantity: maxQuantity, UnitPrice: maxUnitPrice}
	}
	_, _, err := Compute(huge, 700)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Less(t, int64(maxQuantity)*maxUnitPrice, int64(math.MaxInt64))
}

func TestDateJSON(t *testing.T) {
	var in struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-05-31"}`), &in))
	assert.Equal(t, "2024-05-31", in.D.String())

	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-05-31"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"d":"31/05/2024"}`), &in))

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &in))
	assert.True(t, in.D.IsZero())
}
