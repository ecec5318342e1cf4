package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AndCurrency(t *testing.T) {
	a, err := Parse("50.00")
	require.NoError(t, err)
	assert.Equal(t, "50.00", a.Currency())
	assert.Equal(t, "50", a.String())
	assert.Equal(t, int32(0), a.FractionDigits())

	b, err := Parse(" 12.345 ")
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.FractionDigits())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestFromScaled(t *testing.T) {
	a, err := FromScaled(5000, 2)
	require.NoError(t, err)
	assert.True(t, a.Equal(MustParse("50")))

	_, err = FromScaled(1, -1)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestMul_IsExact(t *testing.T) {
	cases := []struct{ q, p, want string }{
		{"100", "50.00", "5000"},
		{"0.1", "0.2", "0.02"},
		{"3.333", "1.001", "3.336333"},
		{"12.5", "8.4", "105"},
	}
	for _, tc := range cases {
		got, err := MustParse(tc.q).Mul(MustParse(tc.p))
		require.NoError(t, err)
		assert.True(t, got.Equal(MustParse(tc.want)), "%s * %s = %s", tc.q, tc.p, got)
	}
}

func TestMul_Overflow(t *testing.T) {
	big := MustParse("999999999999")
	_, err := big.Mul(big)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestMul_ScaleOverflow(t *testing.T) {
	_, err := MustParse("0.0001").Mul(MustParse("0.0001"))
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestDiv(t *testing.T) {
	got, err := FromInt(10).Div(FromInt(4))
	require.NoError(t, err)
	assert.Equal(t, "2.5", got.String())

	_, err = FromInt(1).Div(Zero)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestAdd_AndCompare(t *testing.T) {
	sum, err := MustParse("0.1").Add(MustParse("0.2"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustParse("0.3")))
	assert.Equal(t, 1, sum.Cmp(MustParse("0.29")))
	assert.True(t, sum.GreaterThan(Zero))
	assert.True(t, Zero.LessThan(sum))
	assert.True(t, Zero.IsZero())
	assert.False(t, Zero.IsPositive())
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(MustParse("5000.00"))
	require.NoError(t, err)
	assert.Equal(t, `"5000"`, string(b))

	var fromString, fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte(`"12.50"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &fromNumber))
	assert.True(t, fromString.Equal(fromNumber))
}

func TestScanAndValue(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("123.450000"))
	assert.True(t, a.Equal(MustParse("123.45")))

	require.NoError(t, a.Scan(int64(7)))
	assert.True(t, a.Equal(FromInt(7)))

	v, err := MustParse("1.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
}
