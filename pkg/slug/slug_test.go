package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Widget", "widget"},
		{"punctuation", "Red T-Shirt!!", "red-t-shirt"},
		{"multiple spaces", "Hello   World", "hello-world"},
		{"leading and trailing noise", "  --Sale--  ", "sale"},
		{"turkish characters", "Kadın Giyim", "kadin-giyim"},
		{"numbers kept", "iPhone 15 Pro", "iphone-15-pro"},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in))
		})
	}
}
