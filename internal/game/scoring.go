package game

// BullsCows scores guess against secret: a digit in the same position is a
// bull, a digit present at another position is a cow.
//
// Both sequences must hold pairwise distinct digits; with repeats a digit may
// be counted more than once.
func BullsCows(secret Secret, guess [DigitsLen]int) (bulls, cows int) {
	for i := 0; i < DigitsLen; i++ {
		for j := 0; j < DigitsLen; j++ {
			if secret[i] != guess[j] {
				continue
			}
			if i == j {
				bulls++
			} else {
				cows++
			}
		}
	}
	return bulls, cows
}
