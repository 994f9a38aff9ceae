package overlay

import (
	"fmt"
	"strconv"
	"strings"
)

// BlendColors mixes a base color towards an accent color, keeping 15% of
// the base and 85% of the accent. This is a display hint only; callers
// must not depend on the exact ratio. Malformed inputs return the accent
// unchanged.
func BlendColors(base, accent string) string {
	br, bg, bb, ok := parseHexColor(base)
	if !ok {
		return accent
	}
	ar, ag, ab, ok := parseHexColor(accent)
	if !ok {
		return accent
	}

	blend := func(b, a int) int {
		return (b*15 + a*85) / 100
	}
	return fmt.Sprintf("#%02X%02X%02X", blend(br, ar), blend(bg, ag), blend(bb, ab))
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}
