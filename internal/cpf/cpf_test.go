package cpf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"known valid", "11144477735", true},
		{"known valid with punctuation", "111.444.777-35", true},
		{"another valid", "52998224725", true},
		{"corrupted last digit", "11144477736", false},
		{"corrupted first check digit", "11144477725", false},
		{"empty", "", false},
		{"only punctuation", "...-", false},
		{"too short", "1114447773", false},
		{"too long", "111444777350", false},
		{"letters are ignored then too short", "abc1114447773", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}

func TestValid_RejectsRepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		input := strings.Repeat(string(d), Length)
		assert.False(t, Valid(input), "repeated sequence %s must be invalid", input)
	}
}

func TestNormalizeAndFormat(t *testing.T) {
	assert.Equal(t, "52998224725", Normalize(" 529.982.247-25 "))
	assert.Equal(t, "529.982.247-25", Format("52998224725"))
	assert.Equal(t, "123", Format("123"))
}

func TestCheckDigitZeroRemainder(t *testing.T) {
	// 100000001 weights to 10+2 = 12, *10 % 11 = 10 -> 0.
	assert.Equal(t, 0, checkDigit([]int{1, 0, 0, 0, 0, 0, 0, 0, 1}))
}
