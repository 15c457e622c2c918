package rtnl

import (
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// NeighMessage is the Go form of struct ndmsg plus its NDA_* attributes,
// following the same shape as the teacher library's NeighMessage.
type NeighMessage struct {
	Family uint8
	Index  uint32
	State  uint16
	Flags  uint8
	Type   uint8

	Attributes NeighAttributes
}

const neighMsgLen = 12

// NeighAttributes holds the subset of NDA_* attributes C5 needs to build a
// fdb.Destination from a bridge FDB entry.
type NeighAttributes struct {
	LLAddr []byte
	VLAN   *uint16
	Master *uint32
}

func (m *NeighMessage) MarshalBinary() ([]byte, error) {
	b := make([]byte, neighMsgLen)
	b[0] = m.Family
	nativeEndian.PutUint32(b[4:8], m.Index)
	nativeEndian.PutUint16(b[8:10], m.State)
	b[10] = m.Flags
	b[11] = m.Type

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

func (m *NeighMessage) UnmarshalBinary(b []byte) error {
	if len(b) < neighMsgLen {
		return fmt.Errorf("rtnl: neigh message too short: %d bytes", len(b))
	}

	m.Family = b[0]
	m.Index = nativeEndian.Uint32(b[4:8])
	m.State = nativeEndian.Uint16(b[8:10])
	m.Flags = b[10]
	m.Type = b[11]

	if len(b) > neighMsgLen {
		ad, err := netlink.NewAttributeDecoder(b[neighMsgLen:])
		if err != nil {
			return err
		}
		return m.Attributes.decode(ad)
	}
	return nil
}

func (a *NeighAttributes) decode(ad *netlink.AttributeDecoder) error {
	for ad.Next() {
		switch ad.Type() {
		case b1bunix.NDA_LLADDR:
			a.LLAddr = ad.Bytes()
		case b1bunix.NDA_VLAN:
			v := ad.Uint16()
			a.VLAN = &v
		case b1bunix.NDA_MASTER:
			v := ad.Uint32()
			a.Master = &v
		}
	}
	return ad.Err()
}

func (a *NeighAttributes) encode(ae *netlink.AttributeEncoder) error {
	if a.Master != nil {
		ae.Uint32(b1bunix.NDA_MASTER, *a.Master)
	}
	return nil
}

// ListNeighbors dumps the AF_BRIDGE neighbor table for one bridge, carrying
// its ifindex as the request's NDA_MASTER attribute so the kernel itself
// restricts the dump instead of the caller filtering a whole-host listing.
func ListNeighbors(c *Conn, master uint32) ([]NeighMessage, error) {
	req := &NeighMessage{
		Family:     b1bunix.AF_BRIDGE,
		Attributes: NeighAttributes{Master: &master},
	}
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}

	flags := netlink.Request | netlink.Dump
	msgs, err := c.Execute(b, unix.RTM_GETNEIGH, flags)
	if err != nil {
		return nil, err
	}

	out := make([]NeighMessage, 0, len(msgs))
	for _, m := range msgs {
		var nm NeighMessage
		if err := nm.UnmarshalBinary(m.Data); err != nil {
			return nil, err
		}
		out = append(out, nm)
	}
	return out, nil
}
