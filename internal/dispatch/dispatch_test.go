package dispatch

import (
	"bytes"
	"testing"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/bond"
	"github.com/ipilcher/b1b/internal/logx"
	"github.com/ipilcher/b1b/internal/rtnl"
	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

func failoverMsg(t *testing.T, index uint32) netlink.Message {
	t.Helper()
	ev := uint8(b1bunix.IFLA_EVENT_BONDING_FAILOVER)
	lm := &rtnl.LinkMessage{
		Index:      index,
		Attributes: rtnl.LinkAttributes{Event: &ev},
	}
	b, err := lm.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return netlink.Message{
		Header: netlink.Header{Type: netlink.HeaderType(unix.RTM_NEWLINK)},
		Data:   b,
	}
}

func TestApplyLinkEventsCoalescesDuplicates(t *testing.T) {
	inv := bond.Inventory{{Name: "bond2", Index: 42}}
	log := logx.New(new(bytes.Buffer), false, true)

	var loggedParseError bool
	applyLinkEvents(log, inv, []netlink.Message{failoverMsg(t, 42), failoverMsg(t, 42)}, &loggedParseError)

	if !inv[0].Failover {
		t.Fatal("expected Failover to be set")
	}
}

func TestApplyLinkEventsIgnoresUnknownIndex(t *testing.T) {
	inv := bond.Inventory{{Name: "bond2", Index: 42}}
	log := logx.New(new(bytes.Buffer), false, true)

	var loggedParseError bool
	applyLinkEvents(log, inv, []netlink.Message{failoverMsg(t, 99)}, &loggedParseError)

	if inv[0].Failover {
		t.Fatal("Failover should not be set for an unrelated ifindex")
	}
}
