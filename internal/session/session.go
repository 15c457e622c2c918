// Package session owns every long-lived resource the daemon holds for its
// entire run: the two netlink connections, the raw ARP socket, the lazily
// dialed OVS client, and the bond inventory. It exists so main can express
// teardown as a single deferred call in the exact reverse-construction
// order the original required: ovssock, arpsock, request nlsock, multicast
// nlsock, then inventory.
package session

import (
	"fmt"

	"github.com/ipilcher/b1b/internal/bond"
	"github.com/ipilcher/b1b/internal/garp"
	"github.com/ipilcher/b1b/internal/logx"
	"github.com/ipilcher/b1b/internal/ovs"
	"github.com/ipilcher/b1b/internal/rtnl"
	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// Session is the global session G.
type Session struct {
	Log *logx.Logger

	Request   *rtnl.Conn
	Multicast *rtnl.Conn
	ARP       *garp.Sender
	OVS       *ovs.Client

	Inventory bond.Inventory
}

// New opens the request and multicast netlink connections and the raw ARP
// socket, and creates an (unconnected, lazily dialed) OVS client. Any
// failure here is fatal to daemon startup.
func New(log *logx.Logger) (*Session, error) {
	req, err := rtnl.Dial()
	if err != nil {
		return nil, fmt.Errorf("opening request netlink socket: %w", err)
	}

	mc, err := rtnl.Dial(uint32(b1bunix.RTNLGRP_LINK))
	if err != nil {
		req.Close()
		return nil, fmt.Errorf("opening multicast netlink socket: %w", err)
	}

	sender, err := garp.NewSender()
	if err != nil {
		mc.Close()
		req.Close()
		return nil, fmt.Errorf("opening raw ARP socket: %w", err)
	}

	return &Session{
		Log:       log,
		Request:   req,
		Multicast: mc,
		ARP:       sender,
		OVS:       ovs.NewClient(),
	}, nil
}

// Build populates the inventory, either from an explicit list of bond
// names (CLI mode) or by scanning every interface (auto mode).
func (s *Session) Build(names []string) {
	if len(names) > 0 {
		s.Inventory = bond.Parse(s.Log, s.Request, s.OVS, names)
	} else {
		s.Inventory = bond.Detect(s.Log, s.Request, s.OVS)
	}
}

// Close tears down every owned resource in the order the original
// required: OVS socket, ARP socket, request netlink socket, then multicast
// netlink socket. Close failures are logged but never change the process's
// exit status.
func (s *Session) Close() {
	if err := s.OVS.Close(); err != nil {
		s.Log.Error("closing OVS control socket: %v", err)
	}
	if err := s.ARP.Close(); err != nil {
		s.Log.Error("closing ARP socket: %v", err)
	}
	if err := s.Request.Close(); err != nil {
		s.Log.Error("closing request netlink socket: %v", err)
	}
	if err := s.Multicast.Close(); err != nil {
		s.Log.Error("closing multicast netlink socket: %v", err)
	}
}
