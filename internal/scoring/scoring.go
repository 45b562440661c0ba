// Package scoring grades answer vectors against a quiz's answer key.
package scoring

// Key is the part of a question needed to grade it.
type Key struct {
	CorrectAnswer int
	Points        int
}

// Score sums the points of every question whose answer equals the correct index.
// Nil, negative, out-of-range and missing entries never match; extra entries are ignored.
func Score(keys []Key, answers []*int) int {
	total := 0
	for i, k := range keys {
		if i >= len(answers) || answers[i] == nil {
			continue
		}
		if *answers[i] == k.CorrectAnswer {
			total += k.Points
		}
	}
	return total
}

// MaxScore is the score of a perfect submission.
func MaxScore(keys []Key) int {
	total := 0
	for _, k := range keys {
		total += k.Points
	}
	return total
}

// Normalize resizes answers to n entries, padding with nil and dropping extras,
// so the stored vector lines up with the question list.
func Normalize(answers []*int, n int) []*int {
	out := make([]*int, n)
	for i := 0; i < n && i < len(answers); i++ {
		if answers[i] != nil {
			v := *answers[i]
			out[i] = &v
		}
	}
	return out
}

// IsCorrect reports whether answer matches the key.
func IsCorrect(k Key, answer *int) bool {
	return answer != nil && *answer == k.CorrectAnswer
}
