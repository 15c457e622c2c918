package garp

import (
	"bytes"
	"testing"
)

func TestBuildFrameUntagged(t *testing.T) {
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	frame := buildFrame(mac, 0)

	if len(frame) != 42 {
		t.Fatalf("len(frame) = %d, want 42", len(frame))
	}
	if !bytes.Equal(frame[0:6], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}) {
		t.Fatalf("destination MAC not broadcast: %x", frame[0:6])
	}
	if !bytes.Equal(frame[6:12], mac[:]) {
		t.Fatalf("source MAC = %x, want %x", frame[6:12], mac)
	}
	if frame[12] != 0x08 || frame[13] != 0x06 {
		t.Fatalf("ethertype = %x, want 0806", frame[12:14])
	}

	arp := frame[14:]
	if arp[6] != 0 || arp[7] != 2 {
		t.Fatalf("ARP opcode = %x, want 0002 (reply)", arp[6:8])
	}
	if !bytes.Equal(arp[8:14], mac[:]) {
		t.Fatalf("ARP sender hw = %x, want %x", arp[8:14], mac)
	}
	if !bytes.Equal(arp[14:18], []byte{0, 0, 0, 0}) {
		t.Fatalf("ARP sender ip = %x, want 0.0.0.0", arp[14:18])
	}
	if !bytes.Equal(arp[18:24], make([]byte, 6)) {
		t.Fatalf("ARP target hw = %x, want all zero", arp[18:24])
	}
}

func TestBuildFrameTagged(t *testing.T) {
	mac := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	frame := buildFrame(mac, 100)

	if len(frame) != 46 {
		t.Fatalf("len(frame) = %d, want 46", len(frame))
	}
	if frame[12] != 0x81 || frame[13] != 0x00 {
		t.Fatalf("tpid = %x, want 8100", frame[12:14])
	}
	vid := uint16(frame[14])<<8 | uint16(frame[15])
	if vid != 100 {
		t.Fatalf("vid = %d, want 100", vid)
	}
	if frame[16] != 0x08 || frame[17] != 0x06 {
		t.Fatalf("inner ethertype = %x, want 0806", frame[16:18])
	}
}
