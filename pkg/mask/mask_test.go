package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPF(t *testing.T) {
	cases := map[string]string{
		"11111111111":    "111.111.111-11",
		"111.111.111-11": "111.111.111-11",
		"123456":         "123.456",
		"1234567890123":  "123.456.789-01",
		"":               "",
		"abc":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CPF(in), in)
	}
}

func TestValidCPF(t *testing.T) {
	assert.True(t, ValidCPF("111.111.111-11"))
	assert.False(t, ValidCPF("111.111.111"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "(85) 9 9690-3476", Phone("85996903476"))
	assert.Equal(t, "(85) 9 9690-3476", Phone("(85) 9 9690-3476"))
	assert.Equal(t, "(85) 9", Phone("859"))
}

func TestLandline(t *testing.T) {
	assert.Equal(t, "(85) 3333-4444", Landline("8533334444"))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "01/01/2015", Date("01012015"))
	assert.Equal(t, "01/01", Date("0101"))
}
