package background

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

const gradientPrefix = "linear-gradient-"

// Hues are the three hue angles of a topic's fallback gradient.
type Hues struct {
	H1, H2, H3 int
}

// Gradient derives a stable set of hues from topic. The hash runs over UTF-16
// code units with 32-bit wraparound so identifiers match ones produced by
// earlier browser builds of the app.
func Gradient(topic string) Hues {
	var h int32
	for _, code := range utf16.Encode([]rune(topic)) {
		h = (h << 5) - h + int32(code)
	}
	h1 := int(h % 360)
	if h1 < 0 {
		h1 = -h1
	}
	return Hues{H1: h1, H2: (h1 + 60) % 360, H3: (h1 + 120) % 360}
}

// String renders the stored identifier, e.g. "linear-gradient-12-72-132".
func (g Hues) String() string {
	return fmt.Sprintf("%s%d-%d-%d", gradientPrefix, g.H1, g.H2, g.H3)
}

// CSS renders a drawable background value for the gradient.
func (g Hues) CSS() string {
	return fmt.Sprintf("linear-gradient(135deg, hsl(%d, 70%%, 40%%), hsl(%d, 70%%, 45%%), hsl(%d, 70%%, 35%%))",
		g.H1, g.H2, g.H3)
}

// IsGradient reports whether a stored background value is a gradient identifier.
func IsGradient(value string) bool {
	return strings.HasPrefix(value, gradientPrefix)
}

// ParseGradient reverses Hues.String.
func ParseGradient(value string) (Hues, error) {
	if !IsGradient(value) {
		return Hues{}, fmt.Errorf("not a gradient identifier: %q", value)
	}
	var g Hues
	if _, err := fmt.Sscanf(strings.TrimPrefix(value, gradientPrefix), "%d-%d-%d", &g.H1, &g.H2, &g.H3); err != nil {
		return Hues{}, fmt.Errorf("parse gradient %q: %w", value, err)
	}
	for _, h := range []int{g.H1, g.H2, g.H3} {
		if h < 0 || h >= 360 {
			return Hues{}, fmt.Errorf("gradient hue %d out of range", h)
		}
	}
	return g, nil
}
