package game

import "testing"

func TestBullsCows(t *testing.T) {
	secret := Secret{1, 2, 3}

	cases := []struct {
		name  string
		guess [DigitsLen]int
		bulls int
		cows  int
	}{
		{name: "exact", guess: [DigitsLen]int{1, 2, 3}, bulls: 3, cows: 0},
		{name: "reversed", guess: [DigitsLen]int{3, 2, 1}, bulls: 1, cows: 2},
		{name: "disjoint", guess: [DigitsLen]int{4, 5, 6}, bulls: 0, cows: 0},
		{name: "rotated", guess: [DigitsLen]int{2, 3, 1}, bulls: 0, cows: 3},
		{name: "one bull", guess: [DigitsLen]int{1, 5, 6}, bulls: 1, cows: 0},
		{name: "one cow", guess: [DigitsLen]int{4, 1, 6}, bulls: 0, cows: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, c := BullsCows(secret, tc.guess)
			if b != tc.bulls || c != tc.cows {
				t.Fatalf("BullsCows(%v, %v) = %d,%d want %d,%d", secret, tc.guess, b, c, tc.bulls, tc.cows)
			}
		})
	}
}

func TestBullsCows_NeverExceedsLength(t *testing.T) {
	all := permutations()
	if len(all) != 9*8*7 {
		t.Fatalf("permutations=%d want %d", len(all), 9*8*7)
	}

	for _, s := range all {
		for _, g := range all {
			b, c := BullsCows(Secret(s), g)
			if b+c > DigitsLen {
				t.Fatalf("secret %v guess %v: bulls+cows=%d", s, g, b+c)
			}
			if (b == DigitsLen) != (s == g) {
				t.Fatalf("secret %v guess %v: bulls=%d", s, g, b)
			}
		}
	}
}

// permutations lists every sequence of 3 distinct digits 1..9.
func permutations() [][DigitsLen]int {
	var out [][DigitsLen]int
	for a := MinDigit; a <= MaxDigit; a++ {
		for b := MinDigit; b <= MaxDigit; b++ {
			for c := MinDigit; c <= MaxDigit; c++ {
				if a == b || b == c || a == c {
					continue
				}
				out = append(out, [DigitsLen]int{a, b, c})
			}
		}
	}
	return out
}
