package fdb

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeDebugger struct {
	calls int
}

func (f *fakeDebugger) Debug(format string, args ...interface{}) {
	f.calls++
	_ = fmt.Sprintf(format, args...)
}

func TestSetDedup(t *testing.T) {
	s := NewSet(nil)

	d1 := Destination{VLAN: 10, MAC: [6]byte{0, 1, 2, 3, 4, 5}}
	d2 := Destination{VLAN: 10, MAC: [6]byte{0, 1, 2, 3, 4, 5}}
	d3 := Destination{VLAN: 20, MAC: [6]byte{0, 1, 2, 3, 4, 5}}

	s.Add(d1)
	s.Add(d2)
	s.Add(d3)

	if got, want := s.Len(), 2; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestSetAddLogsDuplicateThroughInjectedLogger(t *testing.T) {
	dbg := &fakeDebugger{}
	s := NewSet(dbg)

	d := Destination{VLAN: 10, MAC: [6]byte{0, 1, 2, 3, 4, 5}}
	s.Add(d)
	s.Add(d)

	if dbg.calls != 1 {
		t.Fatalf("Debug called %d times, want 1", dbg.calls)
	}
}

func TestSetEachOrderAndDrain(t *testing.T) {
	s := NewSet(nil)

	in := []Destination{
		{VLAN: 20, MAC: [6]byte{0, 0, 0, 0, 0, 2}},
		{VLAN: 10, MAC: [6]byte{0, 0, 0, 0, 0, 1}},
		{VLAN: 10, MAC: [6]byte{0, 0, 0, 0, 0, 0}},
	}
	for _, d := range in {
		s.Add(d)
	}

	want := []Destination{
		{VLAN: 10, MAC: [6]byte{0, 0, 0, 0, 0, 0}},
		{VLAN: 10, MAC: [6]byte{0, 0, 0, 0, 0, 1}},
		{VLAN: 20, MAC: [6]byte{0, 0, 0, 0, 0, 2}},
	}

	var got []Destination
	s.Each(func(d Destination) { got = append(got, d) })

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Each() order mismatch (-want +got):\n%s", diff)
	}

	if got := s.Len(); got != 0 {
		t.Fatalf("Len() after drain = %d, want 0", got)
	}
}
