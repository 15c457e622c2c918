// Package bond builds and maintains the inventory of bond interfaces the
// daemon watches (C4): either the fixed list named on the command line, or
// every mode-1 bond enslaved to a bridge/OVS bridge discovered at startup.
package bond

import (
	"fmt"
	"sort"

	"github.com/ipilcher/b1b/internal/bridge"
	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/logx"
	"github.com/ipilcher/b1b/internal/ovs"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// modeActiveBackup is bonding's IFLA_BOND_MODE value 1.
const modeActiveBackup = 1

// Session is the per-bond record C4 produces and C8 consumes: everything
// needed to classify a link-state event as belonging to this bond and to
// gather/emit its gratuitous ARPs.
type Session struct {
	Name  string
	Index uint32

	Bridge bridge.Info
	Reader bridge.FDBReader

	// Log is used by FDB() to report duplicate destinations at debug
	// level; it is the same logger passed to Parse/Detect.
	Log *logx.Logger

	// Failover is set by the dispatcher when this bond reports an
	// IFLA_EVENT_BONDING_FAILOVER notification, and cleared after its
	// GARP burst has been emitted.
	Failover bool

	fdb *fdb.Set
}

// FDB lazily creates and returns this bond's destination set.
func (s *Session) FDB() *fdb.Set {
	if s.fdb == nil {
		s.fdb = fdb.NewSet(s.Log)
	}
	return s.fdb
}

// Inventory is the sorted-by-ifindex collection the dispatcher binary
// searches against on every link-state notification.
type Inventory []*Session

func (inv Inventory) Len() int           { return len(inv) }
func (inv Inventory) Less(i, j int) bool { return inv[i].Index < inv[j].Index }
func (inv Inventory) Swap(i, j int)      { inv[i], inv[j] = inv[j], inv[i] }

// ByIndex returns the Session for the given ifindex, or nil if the daemon
// isn't watching that interface.
func (inv Inventory) ByIndex(index uint32) *Session {
	i := sort.Search(len(inv), func(i int) bool { return inv[i].Index >= index })
	if i < len(inv) && inv[i].Index == index {
		return inv[i]
	}
	return nil
}

// resolve turns one rtnl.LinkMessage known to be a bond into a Session,
// classifying its bridge master and wiring the matching FDBReader. ok is
// false when the interface isn't a usable candidate (not a mode-1 bond, or
// not enslaved to a bridge/OVS bridge); reason explains why.
func resolve(log *logx.Logger, rc *rtnl.Conn, ovsClient *ovs.Client, lm *rtnl.LinkMessage) (sess *Session, ok bool, reason string) {
	li := lm.Attributes.LinkInfo
	if li.Kind != "bond" {
		return nil, false, fmt.Sprintf("%s is not a bonding interface", nameOrPlaceholder(lm))
	}
	if li.BondMode == nil || *li.BondMode != modeActiveBackup {
		return nil, false, fmt.Sprintf("%s is not in active-backup (mode 1)", nameOrPlaceholder(lm))
	}
	if lm.Attributes.Master == nil {
		return nil, false, fmt.Sprintf("%s is not enslaved to a bridge", nameOrPlaceholder(lm))
	}

	info, err := bridge.Resolve(rc, *lm.Attributes.Master)
	if err != nil {
		return nil, false, err.Error()
	}
	if info.Kind != bridge.KindBridge && info.Kind != bridge.KindOVS {
		return nil, false, fmt.Sprintf("%s's master %s is neither a bridge nor an OVS bridge", nameOrPlaceholder(lm), info.Name)
	}

	s := &Session{
		Name:  lm.Attributes.Name,
		Index: lm.Index,
		Log:   log,
	}

	switch info.Kind {
	case bridge.KindBridge:
		s.Bridge = *info
		s.Reader = bridge.NewNativeReader(rc, info.Index)
	case bridge.KindOVS:
		// The kernel-visible master of an OVS bond is the datapath
		// device, not the logical bridge; ovs.Resolve discovers the
		// real bridge name/port and the bridge's own ifindex.
		ovsInfo, reader, err := ovs.Resolve(ovsClient, rc, lm.Attributes.Name)
		if err != nil {
			return nil, false, err.Error()
		}
		s.Bridge = *ovsInfo
		s.Reader = reader
	}

	return s, true, ""
}

// nameOrPlaceholder mirrors the original's temporary "(index %d)" name used
// in log messages while IFLA_IFNAME hasn't been parsed yet.
func nameOrPlaceholder(lm *rtnl.LinkMessage) string {
	if lm.Attributes.Name != "" {
		return lm.Attributes.Name
	}
	return fmt.Sprintf("(index %d)", lm.Index)
}

// Parse builds the inventory from an explicit list of interface names given
// on the command line. Any name that isn't a usable mode-1, bridge-enslaved
// bond is a fatal configuration error.
func Parse(log *logx.Logger, rc *rtnl.Conn, ovsClient *ovs.Client, names []string) Inventory {
	inv := make(Inventory, 0, len(names))

	for _, name := range names {
		lm, err := rtnl.GetLinkByName(rc, name)
		if err != nil {
			log.Fatal("%s: %v", name, err)
		}
		if lm.Attributes.Name != name {
			log.Fatal("kernel returned interface %q for requested name %q", lm.Attributes.Name, name)
		}

		sess, ok, reason := resolve(log, rc, ovsClient, lm)
		if !ok {
			log.Fatal("%s", reason)
		}
		inv = append(inv, sess)
	}

	sort.Sort(inv)
	return inv
}

// Detect builds the inventory by scanning every interface on the system,
// keeping those that are mode-1 bonds enslaved to a bridge or OVS bridge.
// Candidates that don't qualify are dropped with a debug-level log entry
// rather than treated as fatal; finding zero qualifying bonds is fatal.
func Detect(log *logx.Logger, rc *rtnl.Conn, ovsClient *ovs.Client) Inventory {
	links, err := rtnl.ListLinks(rc)
	if err != nil {
		log.Fatal("listing interfaces: %v", err)
	}

	var inv Inventory
	for i := range links {
		lm := &links[i]
		if lm.Attributes.LinkInfo.Kind != "bond" {
			continue
		}
		sess, ok, reason := resolve(log, rc, ovsClient, lm)
		if !ok {
			log.Debug("skipping candidate: %s", reason)
			continue
		}
		inv = append(inv, sess)
	}

	if len(inv) == 0 {
		log.Fatal("no active-backup bonds enslaved to a bridge were found")
	}

	sort.Sort(inv)
	return inv
}
