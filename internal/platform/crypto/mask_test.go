package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "single char fully masked", secret: "a", want: "*"},
		{name: "three chars fully masked", secret: "abc", want: "***"},
		{name: "four chars reveals one", secret: "abcd", want: "a***"},
		{name: "eight chars reveals two", secret: "abcdefgh", want: "ab******"},
		{name: "sixteen chars reveals four", secret: "abcdefghijklmnop", want: "abcd************"},
		{name: "long secret capped at four", secret: strings.Repeat("z", 40), want: "zzzz" + strings.Repeat("*", 36)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mask(tt.secret)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.secret), "mask must preserve length")
		})
	}
}

func TestMask_RevealsAtMostQuarter(t *testing.T) {
	for n := 1; n <= 64; n++ {
		secret := strings.Repeat("s", n)
		masked := Mask(secret)
		revealed := len(masked) - strings.Count(masked, "*")
		assert.LessOrEqual(t, revealed, n/4, "len %d", n)
	}
}
