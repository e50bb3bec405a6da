package geom

import "testing"

func TestRotationsAndOpposite(t *testing.T) {
	for _, d := range Directions {
		if got := d.RotateLeft().RotateRight(); got != d {
			t.Fatalf("%s: left then right = %s", d, got)
		}
		if got := d.Opposite().Opposite(); got != d {
			t.Fatalf("%s: opposite twice = %s", d, got)
		}
		dx, dy := d.Delta()
		ox, oy := d.Opposite().Delta()
		if dx != -ox || dy != -oy {
			t.Fatalf("%s: opposite delta mismatch", d)
		}
	}
	if North.RotateRight() != NorthEast || North.RotateLeft() != NorthWest {
		t.Fatalf("north rotations wrong")
	}
	if Center.RotateLeft() != Center || Center.Opposite() != Center {
		t.Fatalf("center must be a fixed point")
	}
}

func TestDirectionTo(t *testing.T) {
	origin := Coord{X: 5, Y: 5}
	cases := []struct {
		to   Coord
		want Direction
	}{
		{Coord{X: 5, Y: 5}, Center},
		{Coord{X: 5, Y: 9}, North},
		{Coord{X: 9, Y: 9}, NorthEast},
		{Coord{X: 15, Y: 6}, East},
		{Coord{X: 8, Y: 3}, SouthEast},
		{Coord{X: 4, Y: 0}, South},
		{Coord{X: 0, Y: 8}, NorthWest},
		{Coord{X: 0, Y: 5}, West},
	}
	for _, tc := range cases {
		if got := origin.DirectionTo(tc.to); got != tc.want {
			t.Fatalf("DirectionTo(%v)=%s want %s", tc.to, got, tc.want)
		}
	}
}

func TestDirectionToReducesChebyshev(t *testing.T) {
	from := Coord{X: 10, Y: 10}
	for x := 0; x < 21; x++ {
		for y := 0; y < 21; y++ {
			to := Coord{X: x, Y: y}
			if to == from {
				continue
			}
			next := from.Add(from.DirectionTo(to))
			if next.Chebyshev(to) != from.Chebyshev(to)-1 {
				t.Fatalf("step toward %v from %v does not close chebyshev distance", to, from)
			}
			if next.DistSq(to) >= from.DistSq(to) {
				t.Fatalf("step toward %v from %v does not close distance", to, from)
			}
		}
	}
}

func TestDistances(t *testing.T) {
	a := Coord{X: 1, Y: 2}
	b := Coord{X: 4, Y: -2}
	if a.DistSq(b) != 25 {
		t.Fatalf("DistSq=%d", a.DistSq(b))
	}
	if a.Chebyshev(b) != 4 {
		t.Fatalf("Chebyshev=%d", a.Chebyshev(b))
	}
	if b.InBounds(10, 10) {
		t.Fatalf("negative y in bounds")
	}
}
