package bridge

import (
	"testing"

	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/rtnl"
	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

func u16p(v uint16) *uint16 { return &v }
func u32p(v uint32) *uint32 { return &v }

func TestFilterNeighbors(t *testing.T) {
	const master = 10
	const bondIndex = 5

	neighs := []rtnl.NeighMessage{
		{ // kept: vlan 0
			Index: 6,
			State: 0,
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master),
				LLAddr: []byte{0x02, 0xaa, 0, 0, 0, 0x01},
			},
		},
		{ // kept: vlan 10
			Index: 7,
			State: 0,
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master),
				LLAddr: []byte{0x02, 0xaa, 0, 0, 0, 0x02},
				VLAN:   u16p(10),
			},
		},
		{ // dropped: permanent
			Index: 8,
			State: uint16(b1bunix.NUD_PERMANENT),
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master),
				LLAddr: []byte{0x02, 0xaa, 0, 0, 0, 0x03},
			},
		},
		{ // dropped: bond's own index
			Index: bondIndex,
			State: 0,
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master),
				LLAddr: []byte{0x02, 0xbb, 0, 0, 0, 0xff},
			},
		},
		{ // dropped: different master
			Index: 9,
			State: 0,
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master + 1),
				LLAddr: []byte{0x02, 0xcc, 0, 0, 0, 0x01},
			},
		},
		{ // dropped: all-zero MAC
			Index: 11,
			State: 0,
			Attributes: rtnl.NeighAttributes{
				Master: u32p(master),
				LLAddr: []byte{0, 0, 0, 0, 0, 0},
			},
		},
	}

	set := fdb.NewSet(nil)
	filterNeighbors(set, neighs, master, bondIndex)

	if got, want := set.Len(), 2; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}
