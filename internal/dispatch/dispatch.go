// Package dispatch implements the event loop (C8): it drains link-state
// multicast notifications for IFLA_EVENT=bonding_failover messages, flags
// the matching bond in the inventory, and once the socket would otherwise
// block, emits a gratuitous ARP burst for every flagged bond in inventory
// order.
package dispatch

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/bond"
	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/garp"
	"github.com/ipilcher/b1b/internal/logx"
	"github.com/ipilcher/b1b/internal/rtnl"
	b1bunix "github.com/ipilcher/b1b/internal/unix"
)

// pollInterval bounds how long a single Receive call blocks before
// returning control to the loop to check for a termination signal — the
// Go stand-in for ppoll's signal-aware wakeup.
const pollInterval = 250 * time.Millisecond

// Run drains multicast notifications and services GARP bursts until a
// SIGTERM or SIGINT arrives, at which point it returns nil. A non-nil
// return indicates a fatal transport error.
func Run(log *logx.Logger, mc *rtnl.Conn, sender *garp.Sender, inv bond.Inventory) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			// One-shot disposition: a second signal reverts to the Go
			// runtime's default (process-terminating) behavior.
			signal.Stop(sigCh)
			log.Info("termination signal received, shutting down")
			return nil
		default:
		}

		if err := drainCycle(log, mc, inv); err != nil {
			return err
		}

		emitBursts(log, sender, inv)
	}
}

// drainCycle zeroes every bond's failover flag, then reads multicast
// messages until the read deadline expires (the EAGAIN equivalent),
// setting the flag on every bond named by an IFLA_EVENT=bonding_failover
// notification. Duplicate events for the same bond within the cycle are
// coalesced (P5) since the flag is idempotent.
func drainCycle(log *logx.Logger, mc *rtnl.Conn, inv bond.Inventory) error {
	for _, s := range inv {
		s.Failover = false
	}

	if err := mc.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return err
	}

	var loggedParseError bool
	for {
		msgs, err := mc.Receive()
		if err != nil {
			if isTimeout(err) {
				return nil
			}
			return err
		}

		applyLinkEvents(log, inv, msgs, &loggedParseError)
	}
}

// applyLinkEvents decodes each RTM_NEWLINK message and sets the Failover
// flag on its matching inventory entry when it carries
// IFLA_EVENT_BONDING_FAILOVER, coalescing duplicates (P5). Extracted from
// drainCycle's receive loop so it can be exercised directly without a live
// netlink connection.
func applyLinkEvents(log *logx.Logger, inv bond.Inventory, msgs []netlink.Message, loggedParseError *bool) {
	for _, m := range msgs {
		if m.Header.Type != netlink.HeaderType(unix.RTM_NEWLINK) {
			continue
		}

		var lm rtnl.LinkMessage
		if err := lm.UnmarshalBinary(m.Data); err != nil {
			if errors.Is(err, rtnl.ErrInfoOrderViolation) {
				log.Abort("parsing link-state notification: %v", err)
			}
			if !*loggedParseError {
				log.Error("parsing link-state notification: %v", err)
				*loggedParseError = true
			}
			continue
		}

		if lm.Attributes.Event == nil || *lm.Attributes.Event != b1bunix.IFLA_EVENT_BONDING_FAILOVER {
			continue
		}

		s := inv.ByIndex(lm.Index)
		if s == nil {
			continue
		}
		if s.Failover {
			log.Debug("coalescing duplicate failover event for %s", s.Name)
			continue
		}
		s.Failover = true
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// emitBursts runs C7 over every bond flagged during drainCycle, in
// inventory (ascending ifindex) order, and frees each bond's FDB set
// afterward. A failed FDB read (a malformed row, a response-id mismatch, a
// truncated control-socket reply) is fatal: the source of truth for the
// bridge's forwarding table can no longer be trusted, so there is no safe
// partial burst to fall back to.
func emitBursts(log *logx.Logger, sender *garp.Sender, inv bond.Inventory) {
	for _, s := range inv {
		if !s.Failover {
			continue
		}

		set := s.FDB()
		if err := s.Reader.ReadFDB(set, s.Index); err != nil {
			log.Fatal("reading FDB for %s: %v", s.Name, err)
		}

		set.Each(func(d fdb.Destination) {
			if err := sender.Send(int(s.Index), d.MAC, d.VLAN); err != nil {
				log.Error("sending GARP for %s on %s: %v", d, s.Name, err)
			}
		})

		s.Failover = false
	}
}
