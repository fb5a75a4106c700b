package manager

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a parsed 8-bit color.
type RGB struct {
	R, G, B int
}

// Hex renders the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clampChannel(c.R), clampChannel(c.G), clampChannel(c.B))
}

// ParseColor accepts "#rrggbb" and "rgb(r, g, b)" / "rgba(r, g, b, a)".
// Any other syntax is reported as unparsed; callers use such strings verbatim.
func ParseColor(s string) (RGB, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 {
			return RGB{}, false
		}
		var ch [3]int
		for i := range ch {
			n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
			if err != nil {
				return RGB{}, false
			}
			ch[i] = int(n)
		}
		return RGB{ch[0], ch[1], ch[2]}, true
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "rgb") {
		return RGB{}, false
	}
	body := strings.TrimPrefix(lower, "rgba")
	body = strings.TrimPrefix(body, "rgb")
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return RGB{}, false
	}
	parts := strings.Split(body[1:len(body)-1], ",")
	if len(parts) < 3 {
		return RGB{}, false
	}
	var ch [3]int
	for i := range ch {
		n, ok := leadingInt(strings.TrimSpace(parts[i]))
		if !ok {
			return RGB{}, false
		}
		ch[i] = n
	}
	return RGB{ch[0], ch[1], ch[2]}, true
}

// leadingInt parses the integer prefix of s ("12.7" -> 12).
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

const importantSuffix = " !important"

// TintColor shifts a profile color toward white (factor < 1) or black
// (factor > 1). An empty color yields fallback; a color that does not parse
// is returned as-is. With important set, the override marker is appended.
func TintColor(color string, factor float64, important bool, fallback string) string {
	suffix := ""
	if important {
		suffix = importantSuffix
	}
	if strings.TrimSpace(color) == "" {
		return fallback + suffix
	}
	c, ok := ParseColor(color)
	if !ok {
		return color + suffix
	}
	switch {
	case factor < 1.0:
		c.R = tintChannel(float64(c.R)*factor + 255*(1-factor))
		c.G = tintChannel(float64(c.G)*factor + 255*(1-factor))
		c.B = tintChannel(float64(c.B)*factor + 255*(1-factor))
	case factor > 1.0:
		k := 1 - (factor - 1)
		c.R = tintChannel(float64(c.R) * k)
		c.G = tintChannel(float64(c.G) * k)
		c.B = tintChannel(float64(c.B) * k)
	default:
		c = RGB{clampChannel(c.R), clampChannel(c.G), clampChannel(c.B)}
	}
	return fmt.Sprintf("rgb(%d,%d,%d)%s", c.R, c.G, c.B, suffix)
}

func tintChannel(v float64) int {
	return clampChannel(int(math.Round(v)))
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
