package cparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalString(t *testing.T, expr string, ev *evaluator) (int64, error) {
	t.Helper()
	if ev == nil {
		ev = &evaluator{}
	}
	v, err := ev.eval(tokenize(expr))
	return v.Int64(), err
}

func TestParseIntLiteral(t *testing.T) {
	tests := []struct {
		text     string
		want     int64
		unsigned bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"0x1F", 31, false},
		{"0X1fULL", 31, true},
		{"017", 15, false},
		{"0b101", 5, false},
		{"1000000L", 1000000, false},
		{"0x8000000000000000ULL", math.MinInt64, true},
		{"0xFFFFFFFFFFFFFFFF", -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, err := parseIntLiteral(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Int64())
			assert.Equal(t, tt.unsigned, v.unsigned)
		})
	}
}

func TestParseIntLiteral_Errors(t *testing.T) {
	_, err := parseIntLiteral("0x10000000000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit in 64 bits")

	_, err = parseIntLiteral("1.5")
	assert.ErrorIs(t, err, ErrNotConstant)

	_, err = parseIntLiteral("1e3")
	assert.ErrorIs(t, err, ErrNotConstant)
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"1 << 31", 1 << 31},
		{"1ULL << 63", math.MinInt64},
		{"-1", -1},
		{"~0", -1},
		{"!5", 0},
		{"10 / 3", 3},
		{"-7 / 2", -3},
		{"-7 % 2", -1},
		{"0xF0 | 0x0F", 0xFF},
		{"0xFF & ~0x0F", 0xF0},
		{"6 ^ 3", 5},
		{"-16 >> 2", -4},
		{"1 < 2 && 3 > 2", 1},
		{"1 == 2 || 0", 0},
		{"1 ? 10 : 20", 10},
		{"0 ? 10 : 1 ? 30 : 40", 30},
		{"'E'", 'E'},
		{"'\\n'", '\n'},
		{"'\\xff'", -1},
		{"(int)0xFFFFFFFF", -1},
		{"(unsigned)-1", math.MaxUint32},
		{"(int64_t)0x8000000000000000ULL", math.MinInt64},
		{"(unsigned char)0x1FF", 0xFF},
		{"-(int)(('E') | ('O' << 8) | ('F' << 16) | ((unsigned)(' ') << 24))", -0x20464F45},
		{"-1 < 0u", 0},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalString(t, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_Identifiers(t *testing.T) {
	lookup := func(name string) (int64, bool) {
		if name == "AV_CHAN_FRONT_RIGHT" {
			return 1, true
		}
		return 0, false
	}

	got, err := evalString(t, "1ULL << AV_CHAN_FRONT_RIGHT", &evaluator{ident: lookup})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	_, err = evalString(t, "UNKNOWN + 1", &evaluator{ident: lookup})
	assert.ErrorIs(t, err, ErrNotConstant)

	got, err = evalString(t, "UNKNOWN + 1", &evaluator{undefinedIsZero: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = evalString(t, "__has_attribute(deprecated) || 2", &evaluator{undefinedIsZero: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestEval_NotConstant(t *testing.T) {
	for _, expr := range []string{"", "1 / 0", "(void *)0", "1.0", "1 +", "(1"} {
		t.Run(expr, func(t *testing.T) {
			_, err := evalString(t, expr, nil)
			assert.Error(t, err)
		})
	}
}

func TestDecodeEscapes(t *testing.T) {
	got, err := decodeEscapes(`a\tb\\c\"\101\x42\0`)
	require.NoError(t, err)
	assert.Equal(t, []byte("a\tb\\c\"AB\x00"), got)

	_, err = decodeEscapes(`bad\q`)
	assert.Error(t, err)
}
