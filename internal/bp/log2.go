package bp

import "math"

// log2 of every argument the gain inner loop is likely to see, computed once.
// Degrees above the bound fall through to math.Log2.
const log2TableSize = 4096

var log2Table = func() []float64 {
	t := make([]float64, log2TableSize)
	for i := range t {
		t[i] = math.Log2(float64(i))
	}
	return t
}()

func log2(x int) float64 {
	if x < log2TableSize {
		return log2Table[x]
	}
	return math.Log2(float64(x))
}
