package sample

import (
	"sync"
	"time"
)

// Point is one recorded reading of a channel.
type Point struct {
	Timestamp time.Time
	Raw       int
	Output    int
}

// History is a bounded, concurrency-safe record of the most recent points.
type History struct {
	mu     sync.RWMutex
	points []Point
	head   int
	full   bool
}

// NewHistory creates a history holding up to size points.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 1
	}
	return &History{points: make([]Point, size)}
}

// Add records p, evicting the oldest point once full.
func (h *History) Add(p Point) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points[h.head] = p
	h.head++
	if h.head == len(h.points) {
		h.head = 0
		h.full = true
	}
}

// Points copies the recorded points, oldest first, into dst.
// Reuses dst if it has sufficient capacity, otherwise allocates.
func (h *History) Points(dst []Point) []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dst = dst[:0]
	if h.full {
		dst = append(dst, h.points[h.head:]...)
	}
	return append(dst, h.points[:h.head]...)
}

// Downsample reduces src to at most maxPoints by decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
func Downsample[T any](dst []T, src []T, maxPoints int) []T {
	if len(src) <= maxPoints || maxPoints <= 0 {
		if cap(dst) >= len(src) {
			dst = dst[:len(src)]
			copy(dst, src)
			return dst
		}
		result := make([]T, len(src))
		copy(result, src)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]T, 0, maxPoints)
	}

	step := float64(len(src)) / float64(maxPoints)
	for i := range maxPoints {
		dst = append(dst, src[int(float64(i)*step)])
	}
	return dst
}
