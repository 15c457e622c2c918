package ovs

import (
	"testing"

	"github.com/ipilcher/b1b/internal/fdb"
)

func TestParseDpifShow(t *testing.T) {
	// S2: "dpif/show" lists "br-int:" then "  bond0 5".
	const transcript = "system@ovs-system:\n  lookups: hit:0 missed:0 lost:0\nbr-int:\n  bond0 5\n  vxlan0 2\n"

	brname, ofport, ok := parseDpifShow(transcript, "bond0")
	if !ok {
		t.Fatal("expected to find bond0")
	}
	if brname != "br-int" {
		t.Fatalf("brname = %q, want br-int", brname)
	}
	if ofport != 5 {
		t.Fatalf("ofport = %d, want 5", ofport)
	}
}

func TestReadFDBFiltersOwnPortAndLocal(t *testing.T) {
	r := &fdbReader{ofport: 5, ovsBridge: "br-int"}

	// S2: header, LOCAL row, own-port row (skipped), one kept row (vlan 20).
	const transcript = "port  VLAN  MAC                Age\n" +
		"LOCAL 0     02:00:00:00:00:aa  1\n" +
		"5     0     02:00:00:00:00:bb  1\n" +
		"9     20    02:00:00:00:00:cc  1\n"

	set := fdb.NewSet(nil)
	if err := readFDBFromText(set, transcript, r.ofport); err != nil {
		t.Fatalf("readFDBFromText: %v", err)
	}

	if got, want := set.Len(), 1; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}

	var got fdb.Destination
	set.Each(func(d fdb.Destination) { got = d })
	if got.VLAN != 20 {
		t.Fatalf("VLAN = %d, want 20", got.VLAN)
	}
}

func TestReadFDBMalformedRowIsFatal(t *testing.T) {
	const transcript = "port  VLAN  MAC                Age\n" +
		"5     notavlan  02:00:00:00:00:bb  1\n"

	set := fdb.NewSet(nil)
	if err := readFDBFromText(set, transcript, 9); err == nil {
		t.Fatal("expected an error for a malformed row, got nil")
	}
}
