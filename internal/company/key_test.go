package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "MindsDB", "mindsdb"},
		{"spaces", "Cropin Technology", "cropin-technology"},
		{"legal suffix", "Bentley Systems Inc.", "bentley-systems"},
		{"possessive and punctuation", "Dr. Reddy's Laboratories", "dr-reddy-s-laboratories"},
		{"accents folded", "Café Américain", "cafe-americain"},
		{"surrounding junk", "  --Acme Corp  ", "acme"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestKey_Stable(t *testing.T) {
	assert.Equal(t, Key("Spotify AB"), Key(Key("Spotify AB")))
}
