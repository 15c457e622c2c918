// Package fdb implements the destination set collected from a bridge's
// forwarding database for a single failover event: one gratuitous ARP per
// unique (VLAN, MAC) pair, deduplicated across however many FDB entries
// produced it.
package fdb

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Debugger is the logging sink Set uses to report non-fatal duplicate
// destinations. *logx.Logger satisfies it; passing nil discards the
// messages.
type Debugger interface {
	Debug(format string, args ...interface{})
}

// Destination is a single MAC/VLAN pair that needs a gratuitous ARP.
type Destination struct {
	VLAN uint16
	MAC  [6]byte
}

func (d Destination) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x vlan %d",
		d.MAC[0], d.MAC[1], d.MAC[2], d.MAC[3], d.MAC[4], d.MAC[5], d.VLAN)
}

// Key is the packed, comparable form of a Destination suitable for use as a
// map key: 2 bytes of VLAN ID followed by the 6 MAC bytes.
type Key [8]byte

func keyOf(d Destination) Key {
	var k Key
	binary.BigEndian.PutUint16(k[0:2], d.VLAN)
	copy(k[2:8], d.MAC[:])
	return k
}

// Set is the deduplicated collection of destinations gathered while reading
// a bridge's FDB. Entries are added in whatever order the FDB reader visits
// them; Each visits them in a stable, sorted order so that GARP emission is
// deterministic and testable.
type Set struct {
	m   map[Key]Destination
	log Debugger
}

// NewSet returns an empty destination set that reports duplicate
// destinations to log (nil is fine; duplicates are silently dropped).
func NewSet(log Debugger) *Set {
	return &Set{m: make(map[Key]Destination), log: log}
}

// Add inserts a destination, ignoring (but logging at debug level) an exact
// duplicate. It is not an error for two FDB entries to resolve to the same
// (VLAN, MAC) pair — multiple bridge ports may legitimately learn the same
// address during a transition.
func (s *Set) Add(d Destination) {
	k := keyOf(d)
	if _, dup := s.m[k]; dup {
		if s.log != nil {
			s.log.Debug("duplicate FDB destination: %s", d)
		}
		return
	}
	s.m[k] = d
}

// Len returns the number of distinct destinations currently held.
func (s *Set) Len() int {
	return len(s.m)
}

// Each calls fn once for every destination in the set, in ascending key
// order (VLAN first, then MAC), and then discards the set's contents.
// The sort gives callers — and tests — a deterministic emission order
// without requiring a balanced tree to maintain it incrementally.
func (s *Set) Each(fn func(Destination)) {
	keys := make([]Key, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		for b := 0; b < len(keys[i]); b++ {
			if keys[i][b] != keys[j][b] {
				return keys[i][b] < keys[j][b]
			}
		}
		return false
	})

	for _, k := range keys {
		fn(s.m[k])
	}

	s.m = make(map[Key]Destination)
}
