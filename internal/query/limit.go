package query

import "iter"

// limit yields at most n items of seq in order and stops pulling from seq
// once n items were produced. An error counts as the last item.
func limit[K, V any](seq iter.Seq2[K, V], n int) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for k, v := range seq {
			if !yield(k, v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
