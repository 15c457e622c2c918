package rtnl

import (
	"errors"
	"testing"

	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// packAttr builds a single native-endian netlink attribute TLV, padded to
// the 4-byte NLA_ALIGNTO boundary, matching the wire format Unmarshal
// expects.
func packAttr(atype uint16, value []byte) []byte {
	total := 4 + len(value)
	buf := make([]byte, total)
	nativeEndian.PutUint16(buf[0:2], uint16(total))
	nativeEndian.PutUint16(buf[2:4], atype)
	copy(buf[4:], value)

	if pad := (4 - total%4) % 4; pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}
	return buf
}

func TestLinkInfoDataBeforeKindIsAnOrderViolation(t *testing.T) {
	dataAttr := packAttr(uint16(b1bunix.IFLA_INFO_DATA), nil)
	kindAttr := packAttr(uint16(b1bunix.IFLA_INFO_KIND), append([]byte("bond"), 0))
	linkInfoAttr := packAttr(uint16(b1bunix.IFLA_LINKINFO), append(dataAttr, kindAttr...))

	b := append(make([]byte, linkMsgLen), linkInfoAttr...)

	var lm LinkMessage
	err := lm.UnmarshalBinary(b)
	if !errors.Is(err, ErrInfoOrderViolation) {
		t.Fatalf("UnmarshalBinary err = %v, want ErrInfoOrderViolation", err)
	}
}

func TestLinkInfoKindBeforeDataDecodesCleanly(t *testing.T) {
	kindAttr := packAttr(uint16(b1bunix.IFLA_INFO_KIND), append([]byte("vlan"), 0))
	linkInfoAttr := packAttr(uint16(b1bunix.IFLA_LINKINFO), kindAttr)

	b := append(make([]byte, linkMsgLen), linkInfoAttr...)

	var lm LinkMessage
	if err := lm.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if lm.Attributes.LinkInfo.Kind != "vlan" {
		t.Fatalf("Kind = %q, want vlan", lm.Attributes.LinkInfo.Kind)
	}
}
