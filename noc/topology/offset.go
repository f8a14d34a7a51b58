package topology

// RelativeOffset computes the (sign, magnitude) a HEAD's header should
// encode for one dimension, given the source and destination coordinates
// along that dimension and the dimension's size.
//
// For a mesh, the offset is simply the signed difference. For a torus,
// the builder picks the sign that minimizes the absolute offset —
// wrap-around is chosen whenever it shortens the path — with ties broken
// toward BACK, per spec.md §4.1. Centralizing this in one helper (instead
// of spreading it across the topology builder, as the original source
// does per spec.md §9) keeps mesh and torus coordinate math in one place.
func RelativeOffset(src, dst, dimSize int, isTorus bool) (back bool, magnitude int) {
	diff := dst - src
	if !isTorus {
		if diff < 0 {
			return true, -diff
		}
		return false, diff
	}

	forwardDist := ((diff % dimSize) + dimSize) % dimSize // steps moving in the + direction
	backDist := (dimSize - forwardDist) % dimSize         // steps moving in the - direction

	if forwardDist < backDist {
		return false, forwardDist
	}
	// Equal distances (diametrically opposite on an even-sized ring) break
	// toward BACK.
	return true, backDist
}
