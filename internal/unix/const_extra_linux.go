//go:build linux

package unix

import linux "golang.org/x/sys/unix"

// Additional constants used by the bonding/bridge GARP daemon that the
// upstream re-export list didn't carry. Most exist verbatim in
// golang.org/x/sys/unix; the IFLA_EVENT enum values are not exposed there
// as named constants, so they're restated from linux/if_link.h directly
// (stable uapi, safe to hardcode).
const (
	AF_BRIDGE              = linux.AF_BRIDGE
	AF_PACKET              = linux.AF_PACKET
	NUD_PERMANENT          = linux.NUD_PERMANENT
	NUD_NOARP              = linux.NUD_NOARP
	RTNLGRP_LINK           = linux.RTNLGRP_LINK
	NETLINK_ADD_MEMBERSHIP = linux.NETLINK_ADD_MEMBERSHIP
	ARPHRD_ETHER           = linux.ARPHRD_ETHER
	ETH_P_ARP              = linux.ETH_P_ARP
	ETH_P_8021Q            = linux.ETH_P_8021Q
	ETH_P_IP               = linux.ETH_P_IP
	ETH_ALEN               = 6
	SOL_PACKET             = linux.SOL_PACKET
	SizeofSockaddrLinklayer = linux.SizeofSockaddrLinklayer

	IFLA_EVENT        = 44

	// linux/if_link.h: enum netdev_event
	IFLA_EVENT_NONE              = 0
	IFLA_EVENT_REBOOT            = 1
	IFLA_EVENT_FEATURES          = 2
	IFLA_EVENT_BONDING_FAILOVER  = 3
	IFLA_EVENT_NOTIFY_PEERS      = 4
	IFLA_EVENT_IGMP_RESEND       = 5
	IFLA_EVENT_BONDING_OPTIONS   = 6

	ARPOP_REQUEST = 1
	ARPOP_REPLY   = 2

	NDA_VLAN   = linux.NDA_VLAN
	NDA_MASTER = linux.NDA_MASTER

	F_GETLK = linux.F_GETLK
	F_RDLCK = linux.F_RDLCK
)

type SockaddrLinklayer = linux.SockaddrLinklayer

var (
	Bind    = linux.Bind
	Socket  = linux.Socket
	Sendto  = linux.Sendto
	Close   = linux.Close
	SetsockoptInt = linux.SetsockoptInt
	FcntlFlock    = linux.FcntlFlock
)

type Flock_t = linux.Flock_t
