package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in     string
		want   RGB
		wantOK bool
	}{
		{"#3b82f6", RGB{59, 130, 246}, true},
		{"  #FFFFFF ", RGB{255, 255, 255}, true},
		{"rgb(1, 2, 3)", RGB{1, 2, 3}, true},
		{"RGBA(10,20,30,0.5)", RGB{10, 20, 30}, true},
		{"rgb(12.7, 0, 0)", RGB{12, 0, 0}, true},
		{"#fff", RGB{}, false},
		{"#gggggg", RGB{}, false},
		{"red", RGB{}, false},
		{"hsl(0, 100%, 50%)", RGB{}, false},
		{"rgb(1, 2)", RGB{}, false},
		{"", RGB{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTintColor(t *testing.T) {
	assert.Equal(t, "rgb(255,255,255)", TintColor("#ffffff", 0.5, false, "x"))
	assert.Equal(t, "rgb(0,0,0)", TintColor("#000000", 1.5, false, "x"))
	assert.Equal(t, "inherit", TintColor("", 1.0, false, "inherit"))

	// Lighten halfway toward white.
	assert.Equal(t, "rgb(128,128,128)", TintColor("#000000", 0.5, false, "x"))
	// Darken by 10%.
	assert.Equal(t, "rgb(180,180,180)", TintColor("#c8c8c8", 1.1, false, "x"))
	// Factor 1 passes the channels through.
	assert.Equal(t, "rgb(59,130,246)", TintColor("#3b82f6", 1.0, false, "x"))
}

func TestTintColor_ImportantAndOpaque(t *testing.T) {
	assert.Equal(t, DefaultBorderToken+" !important", TintColor("", 1.1, true, DefaultBorderToken))
	assert.Equal(t, "red !important", TintColor("red", 1.1, true, "x"))
	assert.Equal(t, "rgb(0,0,0) !important", TintColor("#000000", 1.1, true, "x"))
}

func TestRGBHex_Clamps(t *testing.T) {
	assert.Equal(t, "#ff0000", RGB{300, -4, 0}.Hex())
}
