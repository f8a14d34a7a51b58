package router

import (
	"testing"

	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/routing"
	"github.com/nocsim/nocsim/noc/switching"
)

func newIrvine() *Irvine {
	sched := &fakeScheduler{}
	rt := routing.NewXY(true)
	sw := switching.NewWormhole()
	return NewIrvine("0", rt, sw, sched, nil, nil)
}

func westBoundHead() *flit.Head {
	header := flit.NewHeader(2)
	if err := header.SetOffset(0, true, 3); err != nil { // back=true: west-bound
		panic(err)
	}
	return flit.NewHead(32, header, 1, 0, -1)
}

func eastBoundHead() *flit.Head {
	header := flit.NewHeader(2)
	if err := header.SetOffset(0, false, 3); err != nil {
		panic(err)
	}
	return flit.NewHead(32, header, 1, 0, -1)
}

func TestSideForRoutesWestBoundHeadToLeftHalf(t *testing.T) {
	ir := newIrvine()
	head := westBoundHead()
	if side := ir.sideFor(head); side != leftHalf {
		t.Fatalf("a west-bound (back) X offset must route to the left half, got %v", side)
	}
}

func TestSideForRoutesEastBoundHeadToRightHalf(t *testing.T) {
	ir := newIrvine()
	head := eastBoundHead()
	if side := ir.sideFor(head); side != rightHalf {
		t.Fatalf("an east-bound X offset must route to the right half, got %v", side)
	}
}

func TestSideForFollowsHomeHalfForBody(t *testing.T) {
	ir := newIrvine()
	head := westBoundHead()
	ir.sideFor(head) // records homeHalf[head.UID()] = leftHalf
	body := flit.NewBody(head.UID(), 32, 0, -1)
	if side := ir.sideFor(body); side != leftHalf {
		t.Fatalf("a BODY must follow its HEAD's recorded half, got %v", side)
	}
}

func TestCheckTurnAllowsStayingOnHomeHalf(t *testing.T) {
	ir := newIrvine()
	ir.homeHalf[42] = leftHalf
	body := flit.NewBody(42, 32, 0, -1)
	if err := ir.checkTurn(ir.Left, body); err != nil {
		t.Fatalf("staying on the home half must not error: %v", err)
	}
}

func TestCheckTurnRejectsCrossingToTheOtherHalf(t *testing.T) {
	ir := newIrvine()
	ir.homeHalf[42] = leftHalf
	body := flit.NewBody(42, 32, 0, -1)
	if err := ir.checkTurn(ir.Right, body); err == nil {
		t.Fatal("a flit homed on the left half must not be allowed to turn onto the right half")
	}
}

func TestCheckTurnIgnoresUntrackedFlit(t *testing.T) {
	ir := newIrvine()
	body := flit.NewBody(999, 32, 0, -1)
	if err := ir.checkTurn(ir.Right, body); err != nil {
		t.Fatalf("an untracked head uid must not be rejected: %v", err)
	}
}

func TestIrvineSetFaultyMarksBothHalves(t *testing.T) {
	ir := newIrvine()
	ir.SetFaulty(true)
	if !ir.Left.IsFaulty() || !ir.Right.IsFaulty() {
		t.Fatal("SetFaulty must mark both halves")
	}
	if !ir.IsFaulty() {
		t.Fatal("IsFaulty must report true when either half is faulty")
	}
}
