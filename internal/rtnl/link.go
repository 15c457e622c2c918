package rtnl

import (
	"errors"
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// ErrInfoOrderViolation is returned when IFLA_LINKINFO's IFLA_INFO_DATA
// attribute arrives before IFLA_INFO_KIND in the same RTM_NEWLINK payload.
// Bond-mode decoding depends on Kind already being known, so this can only
// mean the kernel's attribute ordering contract has been violated — a
// programmer-error condition, not an ordinary parse failure.
// dispatch.applyLinkEvents routes it to logx.Abort; the inventory-time
// lookups in package bond do not single it out and handle it like any other
// lookup error (fatal in Parse, a fatal link dump or a skipped candidate in
// Detect).
var ErrInfoOrderViolation = errors.New("rtnl: IFLA_INFO_DATA seen before IFLA_INFO_KIND")

// LinkMessage is the Go form of struct ifinfomsg plus its attribute list,
// following the same marshal/unmarshal shape as the teacher library's
// mature RouteMessage/NeighMessage types.
type LinkMessage struct {
	Family uint8
	Type   uint16
	Index  uint32
	Flags  uint32
	Change uint32

	Attributes LinkAttributes
}

const linkMsgLen = 16

// MarshalBinary marshals a LinkMessage into a byte slice.
func (m *LinkMessage) MarshalBinary() ([]byte, error) {
	b := make([]byte, linkMsgLen)
	b[0] = m.Family
	// b[1] padding
	nativeEndian.PutUint16(b[2:4], m.Type)
	nativeEndian.PutUint32(b[4:8], m.Index)
	nativeEndian.PutUint32(b[8:12], m.Flags)
	nativeEndian.PutUint32(b[12:16], m.Change)

	ae := netlink.NewAttributeEncoder()
	if err := m.Attributes.encode(ae); err != nil {
		return nil, err
	}
	ab, err := ae.Encode()
	if err != nil {
		return nil, err
	}

	return append(b, ab...), nil
}

// UnmarshalBinary unmarshals the contents of a byte slice into a
// LinkMessage.
func (m *LinkMessage) UnmarshalBinary(b []byte) error {
	if len(b) < linkMsgLen {
		return fmt.Errorf("rtnl: link message too short: %d bytes", len(b))
	}

	m.Family = b[0]
	m.Type = nativeEndian.Uint16(b[2:4])
	m.Index = nativeEndian.Uint32(b[4:8])
	m.Flags = nativeEndian.Uint32(b[8:12])
	m.Change = nativeEndian.Uint32(b[12:16])

	if len(b) > linkMsgLen {
		ad, err := netlink.NewAttributeDecoder(b[linkMsgLen:])
		if err != nil {
			return err
		}
		return m.Attributes.decode(ad)
	}
	return nil
}

// LinkAttributes holds the subset of IFLA_* attributes the daemon cares
// about: name, hardware address, bridge/bond master index, link-kind
// classification, and the netdev event code carried on RTM_NEWLINK
// notifications.
type LinkAttributes struct {
	Name    string
	Address []byte
	Master  *uint32
	Event   *uint8

	LinkInfo LinkInfo
}

// LinkInfo is the decoded form of a nested IFLA_LINKINFO attribute.
type LinkInfo struct {
	Kind     string
	SlaveKind string
	BondMode *uint8 // IFLA_BOND_MODE, valid only when Kind == "bond"
}

func (a *LinkAttributes) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case b1bunix.IFLA_IFNAME:
			a.Name = cString(ad.Bytes())
		case b1bunix.IFLA_ADDRESS:
			a.Address = ad.Bytes()
		case b1bunix.IFLA_MASTER:
			v := ad.Uint32()
			a.Master = &v
		case b1bunix.IFLA_EVENT:
			v := ad.Uint8()
			a.Event = &v
		case b1bunix.IFLA_LINKINFO:
			ad.Nested(a.LinkInfo.decode)
		}
	}
	return ad.Err()
}

func (li *LinkInfo) decode(nad *netlink.AttributeDecoder) error {
	for nad.Next() {
		switch nad.Type() {
		case b1bunix.IFLA_INFO_KIND:
			li.Kind = cString(nad.Bytes())
		case b1bunix.IFLA_INFO_SLAVE_KIND:
			li.SlaveKind = cString(nad.Bytes())
		case b1bunix.IFLA_INFO_DATA:
			if li.Kind == "" {
				return ErrInfoOrderViolation
			}
			if li.Kind == "bond" {
				nad.Nested(li.decodeBondData)
			}
		}
	}
	return nad.Err()
}

func (li *LinkInfo) decodeBondData(bad *netlink.AttributeDecoder) error {
	for bad.Next() {
		if bad.Type() == b1bunix.IFLA_BOND_MODE {
			v := bad.Uint8()
			li.BondMode = &v
		}
	}
	return bad.Err()
}

func (a *LinkAttributes) encode(ae *netlink.AttributeEncoder) error {
	if a.Name != "" {
		ae.Bytes(b1bunix.IFLA_IFNAME, append([]byte(a.Name), 0))
	}
	if a.Event != nil {
		ae.Uint8(b1bunix.IFLA_EVENT, *a.Event)
	}
	return nil
}

// cString trims a NUL-terminated attribute payload down to a Go string.
func cString(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// GetLinkByIndex issues RTM_GETLINK for a single interface index.
func GetLinkByIndex(c *Conn, index uint32) (*LinkMessage, error) {
	req := &LinkMessage{Family: uint8(b1bunix.AF_UNSPEC), Index: index}
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}

	flags := netlink.Request | netlink.Acknowledge
	msgs, err := c.Execute(b, unix.RTM_GETLINK, flags)
	if err != nil {
		return nil, err
	}
	return firstLink(msgs)
}

// GetLinkByName issues RTM_GETLINK with IFLA_IFNAME set in the request,
// asking the kernel to resolve the interface by name directly rather than
// dumping every link and filtering client-side. The reply's own name isn't
// guaranteed by this function to equal the requested name (a rename race is
// possible between resolution and the reply being built) — callers that
// need that guarantee check it themselves.
func GetLinkByName(c *Conn, name string) (*LinkMessage, error) {
	req := &LinkMessage{
		Family:     uint8(b1bunix.AF_UNSPEC),
		Attributes: LinkAttributes{Name: name},
	}
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}

	flags := netlink.Request | netlink.Acknowledge
	msgs, err := c.Execute(b, unix.RTM_GETLINK, flags)
	if err != nil {
		return nil, fmt.Errorf("rtnl: getlink %s: %w", name, err)
	}
	return firstLink(msgs)
}

// ListLinks dumps every interface on the system.
func ListLinks(c *Conn) ([]LinkMessage, error) {
	req := &LinkMessage{Family: uint8(b1bunix.AF_UNSPEC)}
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}

	flags := netlink.Request | netlink.Dump
	msgs, err := c.Execute(b, unix.RTM_GETLINK, flags)
	if err != nil {
		return nil, err
	}

	out := make([]LinkMessage, 0, len(msgs))
	for _, m := range msgs {
		var lm LinkMessage
		if err := lm.UnmarshalBinary(m.Data); err != nil {
			return nil, err
		}
		out = append(out, lm)
	}
	return out, nil
}

func firstLink(msgs []netlink.Message) (*LinkMessage, error) {
	for _, m := range msgs {
		var lm LinkMessage
		if err := lm.UnmarshalBinary(m.Data); err != nil {
			return nil, err
		}
		return &lm, nil
	}
	return nil, fmt.Errorf("rtnl: empty response")
}
