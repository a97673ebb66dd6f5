package nn

import "github.com/chewxy/math32"

// ReLU returns max(x, 0).
func ReLU(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

// Softmax converts logits to probabilities in place. The maximum logit is
// subtracted before exponentiation, so large logits do not overflow and the
// result is unchanged when a constant is added to every logit.
func Softmax(v []float32) {
	if len(v) == 0 {
		return
	}

	maxVal := v[0]
	for _, x := range v[1:] {
		if x > maxVal {
			maxVal = x
		}
	}

	var sum float32
	for i, x := range v {
		v[i] = math32.Exp(x - maxVal)
		sum += v[i]
	}

	for i := range v {
		v[i] /= sum
	}
}

// Argmax returns the index of the largest value. Ties go to the lowest
// index; an empty slice returns -1.
func Argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}

	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
