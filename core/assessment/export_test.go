package assessment

// SetShuffle replaces the shuffle used for questions and options until the returned func is called.
func SetShuffle(fn func(n int, swap func(i, j int))) (restore func()) {
	prev := shuffle
	shuffle = fn
	return func() { shuffle = prev }
}
