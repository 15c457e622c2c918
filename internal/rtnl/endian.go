package rtnl

import (
	"encoding/binary"
	"unsafe"
)

// nativeEndian matches the host's byte order, which is what the kernel
// expects for the fixed-size header fields in rtnetlink messages (unlike
// netlink attribute *payloads*, which mdlayher/netlink's nlenc already
// handles per-platform).
var nativeEndian binary.ByteOrder = func() binary.ByteOrder {
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()
