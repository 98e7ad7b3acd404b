package termemu

import "image/color"

// DefaultPalette is the standard 256-color palette: 16 named colors (0-15),
// 216 color cube (16-231), 24 grayscale (232-255).
var DefaultPalette = [256]color.RGBA{
	// Standard colors (0-7)
	{0, 0, 0, 255},       // Black
	{205, 49, 49, 255},   // Red
	{13, 188, 121, 255},  // Green
	{229, 229, 16, 255},  // Yellow
	{36, 114, 200, 255},  // Blue
	{188, 63, 188, 255},  // Magenta
	{17, 168, 205, 255},  // Cyan
	{229, 229, 229, 255}, // White

	// Bright colors (8-15)
	{102, 102, 102, 255}, // Bright Black
	{241, 76, 76, 255},   // Bright Red
	{35, 209, 139, 255},  // Bright Green
	{245, 245, 67, 255},  // Bright Yellow
	{59, 142, 234, 255},  // Bright Blue
	{214, 112, 214, 255}, // Bright Magenta
	{41, 184, 219, 255},  // Bright Cyan
	{255, 255, 255, 255}, // Bright White

	// 16-231 color cube and 232-255 grayscale are generated in init below.
}

func init() {
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				DefaultPalette[i] = color.RGBA{
					R: uint8(r * 51),
					G: uint8(g * 51),
					B: uint8(b * 51),
					A: 255,
				}
				i++
			}
		}
	}

	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		DefaultPalette[232+j] = color.RGBA{gray, gray, gray, 255}
	}
}

// DefaultForeground is the default text color.
var DefaultForeground = color.RGBA{229, 229, 229, 255}

// DefaultBackground is the default background color.
var DefaultBackground = color.RGBA{0, 0, 0, 255}

// Named color indices for semantic colors (used with NamedColor).
const (
	NamedColorForeground = 256 // Default foreground text color
	NamedColorBackground = 257 // Default background color
	NamedColorCursor     = 258 // Cursor color
)

// IndexedColor references a color by palette index (0-255).
// Resolution to actual RGBA happens at read time using the active palette.
type IndexedColor struct {
	Index int
}

// RGBA implements color.Color, returning a placeholder (actual resolution
// happens at read time).
func (c *IndexedColor) RGBA() (r, g, b, a uint32) {
	return 0, 0, 0, 0xffff
}

// NamedColor references a color by semantic name (foreground, background,
// cursor). Resolution to actual RGBA happens at read time.
type NamedColor struct {
	Name int
}

// RGBA implements color.Color, returning a placeholder (actual resolution
// happens at read time).
func (c *NamedColor) RGBA() (r, g, b, a uint32) {
	return 0, 0, 0, 0xffff
}

// resolveColor converts a cell color to RGBA against the given palette
// overrides (set by OSC 4). A nil color resolves to the default foreground
// or background depending on fg.
func resolveColor(c color.Color, overrides map[int]color.Color, fg bool) color.RGBA {
	if c == nil {
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}

	switch v := c.(type) {
	case color.RGBA:
		return v
	case *IndexedColor:
		if ov, ok := overrides[v.Index]; ok {
			return toRGBA(ov)
		}
		if v.Index >= 0 && v.Index < 256 {
			return DefaultPalette[v.Index]
		}
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	case *NamedColor:
		switch {
		case v.Name >= 0 && v.Name < 256:
			if ov, ok := overrides[v.Name]; ok {
				return toRGBA(ov)
			}
			return DefaultPalette[v.Name]
		case v.Name == NamedColorForeground:
			if ov, ok := overrides[NamedColorForeground]; ok {
				return toRGBA(ov)
			}
			return DefaultForeground
		case v.Name == NamedColorBackground:
			if ov, ok := overrides[NamedColorBackground]; ok {
				return toRGBA(ov)
			}
			return DefaultBackground
		default:
			if fg {
				return DefaultForeground
			}
			return DefaultBackground
		}
	default:
		return toRGBA(c)
	}
}

func toRGBA(c color.Color) color.RGBA {
	if rgba, ok := c.(color.RGBA); ok {
		return rgba
	}
	r, g, b, a := c.RGBA()
	return color.RGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(a >> 8),
	}
}

// PackRGB packs an RGBA value as 0x00RRGGBB for the host.
func PackRGB(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// parseXColor parses an X11-style color spec ("rgb:rr/gg/bb" or "#rrggbb").
// Returns false if the spec is not understood.
func parseXColor(spec string) (color.RGBA, bool) {
	hex := func(s string) (uint8, bool) {
		var v uint32
		for _, ch := range s {
			v <<= 4
			switch {
			case ch >= '0' && ch <= '9':
				v |= uint32(ch - '0')
			case ch >= 'a' && ch <= 'f':
				v |= uint32(ch-'a') + 10
			case ch >= 'A' && ch <= 'F':
				v |= uint32(ch-'A') + 10
			default:
				return 0, false
			}
		}
		// Scale 4/12/16-bit components down to 8 bits.
		switch len(s) {
		case 1:
			v *= 17
		case 3:
			v >>= 4
		case 4:
			v >>= 8
		}
		return uint8(v), true
	}

	if len(spec) >= 4 && spec[:4] == "rgb:" {
		rest := spec[4:]
		parts := make([]string, 0, 3)
		start := 0
		for i := 0; i <= len(rest); i++ {
			if i == len(rest) || rest[i] == '/' {
				parts = append(parts, rest[start:i])
				start = i + 1
			}
		}
		if len(parts) != 3 {
			return color.RGBA{}, false
		}
		r, ok1 := hex(parts[0])
		g, ok2 := hex(parts[1])
		b, ok3 := hex(parts[2])
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}, true
	}

	if len(spec) == 7 && spec[0] == '#' {
		r, ok1 := hex(spec[1:3])
		g, ok2 := hex(spec[3:5])
		b, ok3 := hex(spec[5:7])
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}, true
	}

	return color.RGBA{}, false
}
