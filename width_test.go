package termemu

import "testing"

func TestRuneWidth(t *testing.T) {
	cases := []struct {
		r    rune
		want int
	}{
		{'a', 1},
		{'1', 1},
		{' ', 1},
		{'日', 2},
		{'中', 2},
		{'한', 2},
		{'🎉', 2},
		{'́', 0}, // combining acute accent
	}
	for _, c := range cases {
		if got := runeWidth(c.r); got != c.want {
			t.Errorf("runeWidth(%q): expected %d, got %d", c.r, c.want, got)
		}
	}
}

func TestStringWidth(t *testing.T) {
	cases := []struct {
		s    string
		want int
	}{
		{"hello", 5},
		{"日本", 4},
		{"a日b", 4},
		{"", 0},
	}
	for _, c := range cases {
		if got := StringWidth(c.s); got != c.want {
			t.Errorf("StringWidth(%q): expected %d, got %d", c.s, c.want, got)
		}
	}
}
