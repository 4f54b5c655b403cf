package game

import (
	"strconv"
	"strings"
)

const (
	DigitsLen   = 3
	MaxAttempts = 9
	MinDigit    = 1
	MaxDigit    = 9
)

type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Terminal reports whether no further moves are accepted until reset.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

func (s Status) valid() bool {
	return s == StatusPlaying || s.Terminal()
}

// Secret: загаданное число: три разные цифры 1..9.
type Secret [DigitsLen]int

func (s Secret) Valid() bool {
	return distinctDigits(s[:])
}

func (s Secret) Digits() []int {
	out := make([]int, DigitsLen)
	copy(out, s[:])
	return out
}

func (s Secret) String() string { return digitsString(s[:]) }

// Guess is the in-progress guess, built one digit at a time.
// It is a plain value: copying a Guess never shares storage.
type Guess struct {
	digits [DigitsLen]int
	n      int
}

func (g Guess) Len() int { return g.n }
func (g Guess) Complete() bool { return g.n == DigitsLen }

func (g Guess) Contains(d int) bool {
	for i := 0; i < g.n; i++ {
		if g.digits[i] == d {
			return true
		}
	}
	return false
}

// Digits returns a fresh slice; it is never nil.
func (g Guess) Digits() []int {
	out := make([]int, g.n)
	copy(out, g.digits[:g.n])
	return out
}

func (g Guess) String() string { return digitsString(g.digits[:g.n]) }

func (g Guess) with(d int) Guess {
	g.digits[g.n] = d
	g.n++
	return g
}

func (g Guess) withoutLast() Guess {
	g.n--
	g.digits[g.n] = 0
	return g
}

// ScoredGuess is a submitted guess together with its score.
type ScoredGuess struct {
	Digits [DigitsLen]int `json:"digits"`
	Bulls  int            `json:"bulls"`
	Cows   int            `json:"cows"`
}

// Exact reports a winning guess (all digits in place).
func (sg ScoredGuess) Exact() bool { return sg.Bulls == DigitsLen }

func (sg ScoredGuess) String() string {
	return digitsString(sg.Digits[:]) + " " + strconv.Itoa(sg.Bulls) + "B" + strconv.Itoa(sg.Cows) + "C"
}

func validDigit(d int) bool { return d >= MinDigit && d <= MaxDigit }

func distinctDigits(ds []int) bool {
	var seen [MaxDigit + 1]bool
	for _, d := range ds {
		if !validDigit(d) || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

func digitsString(ds []int) string {
	var b strings.Builder
	for _, d := range ds {
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}
