package worldmodel

import (
	"reflect"
	"testing"

	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
)

func TestRecord_Idempotent(t *testing.T) {
	once := New(30, 30)
	twice := New(30, 30)
	c := geom.Coord{X: 12, Y: 7}

	if !once.Record(c, OwnerAlly, KindMoneyTower, 4) {
		t.Fatalf("first record should change the model")
	}
	twice.Record(c, OwnerAlly, KindMoneyTower, 4)
	if twice.Record(c, OwnerAlly, KindMoneyTower, 4) {
		t.Fatalf("identical record should not report a change")
	}
	if !reflect.DeepEqual(once.Facts(), twice.Facts()) {
		t.Fatalf("facts differ: %+v vs %+v", once.Facts(), twice.Facts())
	}
	if once.PendingCount() != twice.PendingCount() {
		t.Fatalf("pending differ: %d vs %d", once.PendingCount(), twice.PendingCount())
	}
	a, _ := once.Nearest(geom.Coord{}, OfKind(KindMoneyTower))
	b, _ := twice.Nearest(geom.Coord{}, OfKind(KindMoneyTower))
	if a != b {
		t.Fatalf("nearest differ: %v vs %v", a, b)
	}
}

func TestRecord_LastWriteWins(t *testing.T) {
	m := New(40, 40)
	c := geom.Coord{X: 21, Y: 33}
	m.Record(c, OwnerAlly, KindPaintTower, 1)
	m.Record(c, OwnerEnemy, KindDefenseTower, 2)

	got, ok := m.Nearest(geom.Coord{}, OfKind(KindDefenseTower))
	if !ok {
		t.Fatalf("newer kind not found")
	}
	if want := (geom.Coord{X: 22, Y: 32}); got != want {
		t.Fatalf("nearest=%v want chunk center %v", got, want)
	}
	if _, ok := m.Nearest(geom.Coord{}, OfKind(KindPaintTower)); ok {
		t.Fatalf("overwritten kind still found")
	}
	if _, ok := m.Nearest(geom.Coord{}, OwnedBy(OwnerAlly)); ok {
		t.Fatalf("overwritten owner still found")
	}
	if len(m.Facts()) != 1 {
		t.Fatalf("chunk should hold exactly one fact, got %d", len(m.Facts()))
	}
}

func TestNearest_PicksClosestAndReportsMissing(t *testing.T) {
	m := New(64, 64)
	if _, ok := m.Nearest(geom.Coord{}, nil); ok {
		t.Fatalf("empty model should find nothing")
	}
	m.Record(geom.Coord{X: 60, Y: 60}, OwnerEnemy, KindPaintTower, 1)
	m.Record(geom.Coord{X: 6, Y: 6}, OwnerEnemy, KindMoneyTower, 1)
	m.Record(geom.Coord{X: 30, Y: 2}, OwnerAlly, KindMoneyTower, 1)

	f, ok := m.NearestFact(geom.Coord{X: 50, Y: 50}, All(OwnedBy(OwnerEnemy), IsTower()))
	if !ok || f.Loc != (geom.Coord{X: 60, Y: 60}) {
		t.Fatalf("nearest enemy tower=%+v ok=%v", f, ok)
	}
	got, ok := m.Nearest(geom.Coord{X: 0, Y: 0}, OfKind(KindMoneyTower))
	if !ok || got != (geom.Coord{X: 7, Y: 7}) {
		t.Fatalf("nearest money tower center=%v", got)
	}
	// Edge chunk centers are clipped to the map: chunk 12 covers 60..63.
	got, _ = m.Nearest(geom.Coord{X: 63, Y: 63}, OfKind(KindPaintTower))
	if got != (geom.Coord{X: 61, Y: 61}) {
		t.Fatalf("edge chunk center=%v", got)
	}
}

func TestRecord_RejectsInvalid(t *testing.T) {
	m := New(10, 10)
	if m.Record(geom.Coord{X: 10, Y: 0}, OwnerAlly, KindRuin, 0) {
		t.Fatalf("off-map record accepted")
	}
	if m.Record(geom.Coord{X: 1, Y: 1}, OwnerAlly, KindUnknown, 0) {
		t.Fatalf("unknown kind accepted")
	}
	if m.Forget(geom.Coord{X: 1, Y: 1}) || len(m.Facts()) != 0 {
		t.Fatalf("rejected records must leave the model empty")
	}
}

func TestForget(t *testing.T) {
	m := New(20, 20)
	c := geom.Coord{X: 3, Y: 3}
	m.Record(c, OwnerEnemy, KindPaintTower, 1)
	if !m.Forget(geom.Coord{X: 4, Y: 0}) {
		t.Fatalf("forget by any cell of the chunk should work")
	}
	if _, ok := m.Lookup(c); ok {
		t.Fatalf("fact survived forget")
	}
	if got := m.TakePending(10); len(got) != 0 {
		t.Fatalf("forgotten fact should not be relayed: %+v", got)
	}
}

func TestPendingQueue(t *testing.T) {
	m := New(30, 30)
	m.Record(geom.Coord{X: 1, Y: 1}, OwnerAlly, KindPaintTower, 1)
	m.Record(geom.Coord{X: 11, Y: 1}, OwnerEnemy, KindPaintTower, 1)
	m.Record(geom.Coord{X: 1, Y: 1}, OwnerEnemy, KindPaintTower, 2)

	if m.PendingCount() != 2 {
		t.Fatalf("pending=%d want 2 (same chunk queued once)", m.PendingCount())
	}
	first := m.TakePending(1)
	if len(first) != 1 || first[0].Loc != (geom.Coord{X: 1, Y: 1}) || first[0].Owner != OwnerEnemy {
		t.Fatalf("first pending=%+v", first)
	}
	rest := m.TakePending(5)
	if len(rest) != 1 || rest[0].Loc != (geom.Coord{X: 11, Y: 1}) {
		t.Fatalf("rest=%+v", rest)
	}
}

func TestApplyMessage(t *testing.T) {
	sender := New(40, 40)
	sender.Record(geom.Coord{X: 17, Y: 22}, OwnerEnemy, KindDefenseTower, 3)
	f := sender.TakePending(1)[0]

	recv := New(40, 40)
	word := comms.Encode(FactMessage(f))
	msg := comms.NewProtocol(40, 40, KindStructureFact).Decode(word)
	if !recv.ApplyMessage(msg, 4) {
		t.Fatalf("message not applied")
	}
	got, ok := recv.Lookup(geom.Coord{X: 17, Y: 22})
	if !ok || got.Owner != OwnerEnemy || got.Kind != KindDefenseTower || got.SeenTurn != 4 {
		t.Fatalf("received fact=%+v", got)
	}
	if recv.PendingCount() != 0 {
		t.Fatalf("received facts are not relayed by default")
	}

	relay := New(40, 40)
	relay.RelayReceived = true
	relay.ApplyMessage(msg, 4)
	if relay.PendingCount() != 1 {
		t.Fatalf("relay should queue received fact")
	}

	bad := comms.Message{Kind: KindStructureFact, Loc: geom.Coord{X: 1, Y: 1}, Payload: 3<<8 | uint16(KindRuin)}
	if recv.ApplyMessage(bad, 5) {
		t.Fatalf("bad owner accepted")
	}
	if recv.ApplyMessage(comms.Message{Kind: 2, Payload: uint16(KindRuin)}, 5) {
		t.Fatalf("foreign kind accepted")
	}
}

func TestExplored(t *testing.T) {
	m := New(12, 12)
	c := geom.Coord{X: 2, Y: 2}
	m.MarkExplored(c)
	m.MarkExplored(c)
	if !m.IsExplored(c) || m.ExploredCount() != 1 {
		t.Fatalf("explored count=%d", m.ExploredCount())
	}
	if m.IsExplored(geom.Coord{X: 3, Y: 2}) {
		t.Fatalf("neighbour should not be explored")
	}
	m.MarkExplored(geom.Coord{X: -1, Y: 0})
	if m.ExploredCount() != 1 {
		t.Fatalf("off-map mark counted")
	}
}

func TestFindUnexplored(t *testing.T) {
	// 12x12: chunks are 5,5,2 wide; the corner chunk has 4 cells.
	m := New(12, 12)
	from := geom.Coord{X: 0, Y: 0}
	got, ok := m.FindUnexplored(from)
	if !ok || got != (geom.Coord{X: 2, Y: 2}) {
		t.Fatalf("fresh map nearest unexplored=%v", got)
	}

	skipCorner := func(c geom.Coord) bool { return c != (geom.Coord{X: 2, Y: 2}) }
	if got, ok := m.FindUnexploredFunc(from, skipCorner); !ok || got != (geom.Coord{X: 7, Y: 2}) {
		t.Fatalf("filtered nearest unexplored=%v", got)
	}

	// 13 of 25 cells explored pushes chunk (0,0) over half.
	n := 0
	for y := 0; y < 5 && n < 13; y++ {
		for x := 0; x < 5 && n < 13; x++ {
			m.MarkExplored(geom.Coord{X: x, Y: y})
			n++
		}
	}
	got, ok = m.FindUnexplored(from)
	if !ok || got == (geom.Coord{X: 2, Y: 2}) {
		t.Fatalf("explored chunk still reported: %v", got)
	}

	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			m.MarkExplored(geom.Coord{X: x, Y: y})
		}
	}
	if _, ok := m.FindUnexplored(from); ok {
		t.Fatalf("fully explored map should report nothing")
	}
	if m.ExploredCount() != 144 {
		t.Fatalf("count=%d", m.ExploredCount())
	}
}

func TestTerritory(t *testing.T) {
	m := New(8, 8)
	m.MarkTerritory(geom.Coord{X: 1, Y: 1}, OwnerAlly)
	m.MarkTerritory(geom.Coord{X: 2, Y: 1}, OwnerEnemy)
	m.MarkTerritory(geom.Coord{X: 2, Y: 1}, OwnerAlly)
	if m.TerritoryAt(geom.Coord{X: 2, Y: 1}) != OwnerAlly {
		t.Fatalf("territory should be last seen owner")
	}
	if a, e := m.TerritoryCounts(); a != 2 || e != 0 {
		t.Fatalf("counts ally=%d enemy=%d", a, e)
	}
}
