package rates

// Window counts uses inside a fixed window of turns. The zero value with
// Max <= 0 or Size == 0 is unlimited.
type Window struct {
	Size uint64
	Max  int

	start uint64
	count int
	used  bool
}

func (w *Window) roll(nowTurn uint64) {
	if !w.used || nowTurn < w.start || nowTurn-w.start >= w.Size {
		w.start = nowTurn
		w.count = 0
		w.used = true
	}
}

func (w *Window) unlimited() bool { return w.Size == 0 || w.Max <= 0 }

// Remaining is how many more uses the window admits at nowTurn.
func (w *Window) Remaining(nowTurn uint64) int {
	if w.unlimited() {
		return int(^uint(0) >> 1)
	}
	w.roll(nowTurn)
	if w.count >= w.Max {
		return 0
	}
	return w.Max - w.count
}

// Allow records one use if the window has room. A refused use is not counted.
func (w *Window) Allow(nowTurn uint64) bool {
	if w.unlimited() {
		return true
	}
	w.roll(nowTurn)
	if w.count >= w.Max {
		return false
	}
	w.count++
	return true
}
