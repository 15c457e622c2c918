// Package garp builds and sends gratuitous ARP frames over a raw
// AF_PACKET socket (C7). Each frame is a single contiguous buffer — the Go
// raw-socket API sends one buffer per packet rather than a C sendmsg's
// scatter-gather iovec list, so the three wire segments (Ethernet header,
// optional 802.1Q tag, ARP payload) are concatenated before sendto, which
// is observably identical on the wire.
package garp

import (
	"fmt"

	"golang.org/x/sys/unix"

	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// Sender holds the raw AF_PACKET socket used to transmit every gratuitous
// ARP frame for the lifetime of the daemon.
type Sender struct {
	fd int
}

// NewSender opens an AF_PACKET/SOCK_RAW socket bound to ETH_P_ARP.
func NewSender() (*Sender, error) {
	fd, err := unix.Socket(b1bunix.AF_PACKET, unix.SOCK_RAW, htons(b1bunix.ETH_P_ARP))
	if err != nil {
		return nil, fmt.Errorf("garp: opening AF_PACKET socket: %w", err)
	}
	return &Sender{fd: fd}, nil
}

// Close releases the raw socket.
func (s *Sender) Close() error {
	return unix.Close(s.fd)
}

// htons converts a host-order uint16 into the network-order value expected
// by the sll_protocol / EtherType fields.
func htons(v uint16) int {
	return int(v<<8 | v>>8)
}

// Send emits a single gratuitous ARP reply sourced from mac, tagged with
// vlan (0 means untagged), out of the interface at ifIndex. A send failure
// is logged by the caller and is not fatal to the dispatch loop — one
// failed GARP shouldn't abort an entire failover burst.
func (s *Sender) Send(ifIndex int, mac [6]byte, vlan uint16) error {
	frame := buildFrame(mac, vlan)

	addr := &unix.SockaddrLinklayer{
		Protocol: uint16(htons(b1bunix.ETH_P_ARP)),
		Ifindex:  ifIndex,
		Halen:    6,
	}
	copy(addr.Addr[:6], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	if err := unix.Sendto(s.fd, frame, 0, addr); err != nil {
		return fmt.Errorf("garp: sendto ifindex %d: %w", ifIndex, err)
	}
	return nil
}

// buildFrame assembles a broadcast-destined gratuitous ARP reply: a
// 14-byte (or 18-byte, 802.1Q-tagged) Ethernet header followed by a 28-byte
// ARP payload with sender IP = target IP = 0.0.0.0 and target hardware
// address all zero. The all-zero IPs mean the frame teaches switches which
// port reaches mac without poisoning any host's IP->MAC cache.
func buildFrame(mac [6]byte, vlan uint16) []byte {
	var ethType uint16 = b1bunix.ETH_P_ARP
	hdrLen := 14
	if vlan != 0 {
		hdrLen = 18
	}

	frame := make([]byte, hdrLen+28)

	// destination: broadcast
	for i := 0; i < 6; i++ {
		frame[i] = 0xff
	}
	// source
	copy(frame[6:12], mac[:])

	if vlan != 0 {
		frame[12] = byte(b1bunix.ETH_P_8021Q >> 8)
		frame[13] = byte(b1bunix.ETH_P_8021Q)
		frame[14] = byte(vlan >> 8 & 0x0f)
		frame[15] = byte(vlan)
		frame[16] = byte(ethType >> 8)
		frame[17] = byte(ethType)
	} else {
		frame[12] = byte(ethType >> 8)
		frame[13] = byte(ethType)
	}

	arp := frame[hdrLen:]
	arp[0] = byte(b1bunix.ARPHRD_ETHER >> 8)
	arp[1] = byte(b1bunix.ARPHRD_ETHER)
	arp[2] = byte(b1bunix.ETH_P_IP >> 8)
	arp[3] = byte(b1bunix.ETH_P_IP)
	arp[4] = 6 // hardware address length
	arp[5] = 4 // protocol address length
	arp[6] = 0
	arp[7] = b1bunix.ARPOP_REPLY
	copy(arp[8:14], mac[:]) // sender hardware address
	// arp[14:18] sender protocol address: 0.0.0.0
	// arp[18:24] target hardware address: 00:00:00:00:00:00
	// arp[24:28] target protocol address: 0.0.0.0

	return frame
}
