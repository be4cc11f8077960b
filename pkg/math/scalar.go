package math

// Saturate clamps v to [0, 1]. NaN maps to 0.
func Saturate(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
