package route

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func hash(b byte) common.Hash {
	var h common.Hash
	h[len(h)-1] = b
	return h
}

func TestAggregateSimpleExtension(t *testing.T) {
	a, b := hash(1), hash(2)
	enacted, retracted := Aggregate([]ImportRoute{
		{Enacted: []common.Hash{a}},
		{Enacted: []common.Hash{b}},
	})
	if !reflect.DeepEqual(enacted, []common.Hash{a, b}) {
		t.Errorf("enacted = %v, want [%v %v]", enacted, a, b)
	}
	if len(retracted) != 0 {
		t.Errorf("retracted = %v, want empty", retracted)
	}
}

func TestAggregateLastLabelWins(t *testing.T) {
	a := hash(1)
	// a is enacted by the first route, then retracted by the second: only
	// the final label should survive the fold.
	enacted, retracted := Aggregate([]ImportRoute{
		{Enacted: []common.Hash{a}},
		{Retracted: []common.Hash{a}},
	})
	if len(enacted) != 0 {
		t.Errorf("enacted = %v, want empty", enacted)
	}
	if !reflect.DeepEqual(retracted, []common.Hash{a}) {
		t.Errorf("retracted = %v, want [%v]", retracted, a)
	}
}

func TestAggregateOmittedNeverAppears(t *testing.T) {
	a, b := hash(1), hash(2)
	enacted, retracted := Aggregate([]ImportRoute{
		{Omitted: []common.Hash{a}},
		{Enacted: []common.Hash{b}},
	})
	if !reflect.DeepEqual(enacted, []common.Hash{b}) {
		t.Errorf("enacted = %v, want [%v]", enacted, b)
	}
	if len(retracted) != 0 {
		t.Errorf("retracted = %v, want empty", retracted)
	}
}

func TestAggregateDeterministicOrder(t *testing.T) {
	a, b, c := hash(1), hash(2), hash(3)
	want := []common.Hash{a, b, c}
	for i := 0; i < 5; i++ {
		enacted, _ := Aggregate([]ImportRoute{{Enacted: []common.Hash{a, b, c}}})
		if !reflect.DeepEqual(enacted, want) {
			t.Fatalf("run %d: enacted = %v, want %v", i, enacted, want)
		}
	}
}

func TestInvertRoundTrip(t *testing.T) {
	a, b, o := hash(1), hash(2), hash(3)
	r := ImportRoute{Enacted: []common.Hash{a}, Retracted: []common.Hash{b}, Omitted: []common.Hash{o}}
	inv := r.Invert()
	if !reflect.DeepEqual(inv.Enacted, r.Retracted) {
		t.Errorf("Invert().Enacted = %v, want %v", inv.Enacted, r.Retracted)
	}
	if !reflect.DeepEqual(inv.Retracted, r.Enacted) {
		t.Errorf("Invert().Retracted = %v, want %v", inv.Retracted, r.Enacted)
	}
	if !reflect.DeepEqual(inv.Invert(), r) {
		t.Errorf("Invert().Invert() = %+v, want %+v", inv.Invert(), r)
	}
}

func TestAggregateEmpty(t *testing.T) {
	enacted, retracted := Aggregate(nil)
	if len(enacted) != 0 || len(retracted) != 0 {
		t.Errorf("Aggregate(nil) = (%v, %v), want (nil, nil)", enacted, retracted)
	}
}
