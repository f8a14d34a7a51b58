package traffic

import (
	"testing"

	"gonum.org/v1/gonum/stat/combin"
)

// allCoords enumerates every coordinate in a len(sizes)-dimensional grid
// via combin.IdxFor, the same linear-index-to-multi-index helper gonum
// uses internally for enumerating combinations.
func allCoords(sizes []int) [][]int {
	total := 1
	for _, sz := range sizes {
		total *= sz
	}
	out := make([][]int, total)
	for i := 0; i < total; i++ {
		out[i] = combin.IdxFor(i, sizes)
	}
	return out
}

func TestBitComplementIsInvolution(t *testing.T) {
	sizes := []int{4, 4}
	for _, src := range allCoords(sizes) {
		dst := Destination(BitComplement, src, sizes, nil)
		back := Destination(BitComplement, dst, sizes, nil)
		if back[0] != src[0] || back[1] != src[1] {
			t.Fatalf("BitComplement not an involution for %v: got back %v", src, back)
		}
		if dst[0] == src[0] && dst[1] == src[1] {
			t.Fatalf("BitComplement(%v) should never equal the source", src)
		}
	}
}

func TestBitMatrixTransposeIsInvolution(t *testing.T) {
	sizes := []int{4, 4}
	for _, src := range allCoords(sizes) {
		dst := Destination(BitMatrixTranspose, src, sizes, nil)
		back := Destination(BitMatrixTranspose, dst, sizes, nil)
		for d := range src {
			if back[d] != src[d] {
				t.Fatalf("BitMatrixTranspose not an involution for %v: got back %v", src, back)
			}
		}
	}
}

func TestDestinationSpecifiedReturnsFixedCopy(t *testing.T) {
	fixed := []int{2, 3}
	got := Destination(DestinationSpecified, []int{0, 0}, []int{4, 4}, fixed)
	if got[0] != 2 || got[1] != 3 {
		t.Fatalf("DestinationSpecified = %v, want %v", got, fixed)
	}
	got[0] = 99
	if fixed[0] == 99 {
		t.Fatal("Destination must return a copy, not alias the fixed slice")
	}
}

func TestBitsForSize(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4}
	for size, want := range cases {
		if got := bitsForSize(size); got != want {
			t.Errorf("bitsForSize(%d) = %d, want %d", size, got, want)
		}
	}
}
