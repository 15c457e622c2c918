// Package rtnl is a thin route-netlink transport, in the style of the
// mdlayher/netlink-based rtnetlink client it's grounded on: a Conn wraps a
// *netlink.Conn, Execute sends one request and gathers its (possibly
// multi-part) reply, and a second Conn dedicated to a multicast group
// drains link-state notifications on a read deadline instead of blocking
// forever, so the dispatcher can interleave shutdown checks with receives.
package rtnl

import (
	"time"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// Protocol is the netlink protocol family used for all requests: rtnetlink.
const Protocol = unix.NETLINK_ROUTE

// Conn is a route-netlink connection.
type Conn struct {
	c *netlink.Conn
}

// Dial opens a new rtnetlink connection. If groups is non-empty, the
// connection subscribes to the given multicast groups (e.g. RTNLGRP_LINK)
// in addition to being usable for unicast request/response traffic. A
// connection with no groups is the synchronous request socket, and is
// opened with Strict set so the kernel's strict attribute/header validation
// rejects a malformed dump or get request instead of silently returning a
// partial or legacy-shaped reply.
func Dial(groups ...uint32) (*Conn, error) {
	cfg := &netlink.Config{Strict: len(groups) == 0}
	if len(groups) > 0 {
		var mask uint32
		for _, g := range groups {
			mask |= 1 << (g - 1)
		}
		cfg.Groups = mask
	}

	c, err := netlink.Dial(Protocol, cfg)
	if err != nil {
		return nil, err
	}

	return &Conn{c: c}, nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.c.Close()
}

// Execute sends a single request message with the given rtnetlink message
// type and header flags, and returns every reply message (handling
// multi-part dumps transparently via the underlying library).
func (c *Conn) Execute(data []byte, msgType uint16, flags netlink.HeaderFlags) ([]netlink.Message, error) {
	req := netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(msgType),
			Flags: flags,
		},
		Data: data,
	}
	return c.c.Execute(req)
}

// SetReadDeadline sets the deadline for the next Receive call, allowing the
// multicast receive loop to periodically return control to its caller
// (the Go replacement for signal-interruptible ppoll — see dispatch.Run).
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.c.SetReadDeadline(t)
}

// Receive reads whatever messages are currently available on the
// connection. On a deadline expiry it returns a net.Error with Timeout()
// true, which callers treat the same way the original treated EAGAIN from
// a non-blocking recv.
func (c *Conn) Receive() ([]netlink.Message, error) {
	return c.c.Receive()
}
