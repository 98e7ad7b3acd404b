package termemu

import (
	"image/color"
	"testing"
)

func TestDefaultPaletteGenerated(t *testing.T) {
	// Cube corner checks.
	if DefaultPalette[16] != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("palette[16]: expected black, got %v", DefaultPalette[16])
	}
	if DefaultPalette[231] != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("palette[231]: expected white, got %v", DefaultPalette[231])
	}
	if DefaultPalette[232] != (color.RGBA{8, 8, 8, 255}) {
		t.Errorf("palette[232]: expected darkest gray, got %v", DefaultPalette[232])
	}
	if DefaultPalette[255] != (color.RGBA{238, 238, 238, 255}) {
		t.Errorf("palette[255]: expected lightest gray, got %v", DefaultPalette[255])
	}
}

func TestPackRGB(t *testing.T) {
	if got := PackRGB(color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 255}); got != 0x123456 {
		t.Errorf("expected 0x123456, got %06x", got)
	}
}

func TestParseXColor(t *testing.T) {
	cases := []struct {
		spec string
		want color.RGBA
		ok   bool
	}{
		{"rgb:ff/00/80", color.RGBA{255, 0, 128, 255}, true},
		{"rgb:ffff/0000/8080", color.RGBA{255, 0, 128, 255}, true},
		{"#ff0080", color.RGBA{255, 0, 128, 255}, true},
		{"rgb:ff/00", color.RGBA{}, false},
		{"nonsense", color.RGBA{}, false},
		{"", color.RGBA{}, false},
	}
	for _, c := range cases {
		got, ok := parseXColor(c.spec)
		if ok != c.ok || got != c.want {
			t.Errorf("parseXColor(%q): expected (%v, %v), got (%v, %v)", c.spec, c.want, c.ok, got, ok)
		}
	}
}

func TestResolveColor(t *testing.T) {
	if got := resolveColor(nil, nil, true); got != DefaultForeground {
		t.Errorf("nil fg: expected default foreground, got %v", got)
	}
	if got := resolveColor(nil, nil, false); got != DefaultBackground {
		t.Errorf("nil bg: expected default background, got %v", got)
	}

	if got := resolveColor(&IndexedColor{Index: 1}, nil, true); got != DefaultPalette[1] {
		t.Errorf("indexed: expected palette red, got %v", got)
	}

	overrides := map[int]color.Color{1: color.RGBA{9, 9, 9, 255}}
	if got := resolveColor(&IndexedColor{Index: 1}, overrides, true); got != (color.RGBA{9, 9, 9, 255}) {
		t.Errorf("override: expected 090909, got %v", got)
	}

	if got := resolveColor(&NamedColor{Name: NamedColorBackground}, nil, false); got != DefaultBackground {
		t.Errorf("named bg: expected default background, got %v", got)
	}

	rgb := color.RGBA{1, 2, 3, 255}
	if got := resolveColor(rgb, nil, true); got != rgb {
		t.Errorf("rgb passthrough: expected %v, got %v", rgb, got)
	}
}
