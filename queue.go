package juniper

import (
	"cmp"
	"slices"
)

// RenderQueue orders a render list for drawing. Renderables are bucketed by
// the queue key of their primary material and buckets drawn in ascending
// key order. Buckets below TransparentFrom are sorted to group draws by
// program and material and then front to back; the rest are sorted back to
// front. Renderables without a material keep their relative order at the
// front of the list. The sort is stable.
type RenderQueue struct {
	// TransparentFrom is the lowest bucket key sorted back to front. The
	// default puts the QueueTransparent bucket itself on the back-to-front side.
	TransparentFrom int

	keys    []int
	buckets map[int][]Renderable
	front   []Renderable
	sortBuf []Renderable
}

// NewRenderQueue returns a queue with the transparent split at
// QueueTransparent.
func NewRenderQueue() *RenderQueue {
	return &RenderQueue{
		TransparentFrom: QueueTransparent,
		buckets:         make(map[int][]Renderable),
	}
}

// Sort reorders list in place for drawing from cam. A nil camera treats
// every distance as equal.
func (q *RenderQueue) Sort(list []Renderable, cam *Camera) {
	if len(list) == 0 {
		return
	}
	if q.buckets == nil {
		q.buckets = make(map[int][]Renderable)
	}
	for k, b := range q.buckets {
		clear(b)
		q.buckets[k] = b[:0]
	}
	q.keys = q.keys[:0]
	clear(q.front)
	q.front = q.front[:0]

	var eye Vec3
	if cam != nil {
		eye = cam.Position()
	}

	for i := range list {
		r := &list[i]
		if cam != nil && r.HasBound {
			d := r.Bound.Center.Sub(eye)
			r.distSq = d.Dot(d)
		} else {
			r.distSq = 0
		}
		m := r.primaryMaterial()
		if m == nil {
			q.front = append(q.front, *r)
			continue
		}
		key := m.RenderQueue()
		b, seen := q.buckets[key]
		if !seen || len(b) == 0 {
			q.keys = append(q.keys, key)
		}
		q.buckets[key] = append(b, *r)
	}
	slices.Sort(q.keys)

	n := copy(list, q.front)
	for _, key := range q.keys {
		b := q.buckets[key]
		if key >= q.TransparentFrom {
			q.mergeSort(b, compareTransparent)
		} else {
			q.mergeSort(b, compareOpaque)
		}
		n += copy(list[n:], b)
	}
}

// compareOpaque groups by shader program, then by material, then orders
// front to back. Materials without a shader sort first, by material. Entries
// sharing a material stay contiguous.
func compareOpaque(a, b *Renderable) int {
	m1, m2 := a.primaryMaterial(), b.primaryMaterial()
	if m1 == nil || m2 == nil {
		return 0
	}
	if m1 == m2 {
		return compareDistance(a, b)
	}
	switch s1, s2 := m1.Shader, m2.Shader; {
	case s1 == nil && s2 != nil:
		return -1
	case s1 != nil && s2 == nil:
		return 1
	case s1 != nil && s1.ID() != s2.ID():
		return cmp.Compare(s1.ID(), s2.ID())
	}
	return cmp.Compare(m1.id, m2.id)
}

// compareTransparent orders back to front.
func compareTransparent(a, b *Renderable) int {
	return compareDistance(b, a)
}

// compareDistance orders by ascending squared camera distance. Entries
// without a bound compare equal.
func compareDistance(a, b *Renderable) int {
	if !a.HasBound || !b.HasBound {
		return 0
	}
	switch {
	case a.distSq < b.distSq:
		return -1
	case a.distSq > b.distSq:
		return 1
	}
	return 0
}

// mergeSort sorts s stably in place using q.sortBuf as scratch space.
// Bottom-up merge sort: zero allocations after the sort buffer reaches its
// high-water mark.
func (q *RenderQueue) mergeSort(s []Renderable, cmp func(a, b *Renderable) int) {
	n := len(s)
	if n <= 1 {
		return
	}
	if cap(q.sortBuf) < n {
		q.sortBuf = make([]Renderable, n)
	}
	q.sortBuf = q.sortBuf[:n]

	a := s
	b := q.sortBuf
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi, cmp)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(s, a)
	}
	clear(q.sortBuf)
}

// mergeRun merges src[lo:mid] and src[mid:hi] into dst[lo:hi]. Ties take
// from the left run, which keeps the sort stable.
func mergeRun(src, dst []Renderable, lo, mid, hi int, cmp func(a, b *Renderable) int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if cmp(&src[i], &src[j]) <= 0 {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
