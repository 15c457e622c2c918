// Package ovs is the Open vSwitch control client (C6): it locates the
// running ovs-vswitchd's control socket via its PID file, speaks its
// JSON-RPC protocol to run dpif/show and fdb/show, and exposes the result
// through the same bridge.FDBReader interface the native bridge reader
// implements.
//
// No retrieval-pack example ships a JSON-RPC-over-UNIX-socket client
// matching ovs-vswitchd's control-socket framing, so this is hand-rolled on
// encoding/json and net.Dial("unix", ...) rather than grounded on a
// borrowed library — see DESIGN.md.
package ovs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ipilcher/b1b/internal/bridge"
	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/rtnl"
	"github.com/ipilcher/b1b/internal/unix"
)

const (
	pidFile    = "/run/openvswitch/ovs-vswitchd.pid"
	sockDir    = "/run/openvswitch"
	bufferSize = 65536
)

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Client is a lazily-dialed connection to ovs-vswitchd's control socket.
// One Client is shared by every OVS-backed bond in the inventory.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	rd   *bufio.Reader
	id   int
}

// NewClient returns an unconnected Client. The control socket isn't dialed
// until the first call that needs it, so daemons with no OVS bonds never
// touch /run/openvswitch at all.
func NewClient() *Client {
	return &Client{}
}

// Close releases the control-socket connection, if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ensureConn locates ovs-vswitchd's PID via its PID file and F_GETLK lock
// holder, then dials the corresponding per-PID control socket.
func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}

	pid, err := lockHolderPID(pidFile)
	if err != nil {
		return fmt.Errorf("ovs: locating ovs-vswitchd: %w", err)
	}

	path := fmt.Sprintf("%s/ovs-vswitchd.%d.ctl", sockDir, pid)
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("ovs: dialing %s: %w", path, err)
	}

	c.conn = conn
	c.rd = bufio.NewReaderSize(conn, bufferSize)
	return nil
}

// lockHolderPID opens path and asks the kernel who holds its write lock —
// the same technique ovs-appctl uses to find a running daemon without
// trusting a possibly-stale PID file's contents.
func lockHolderPID(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	flock := unix.Flock_t{
		Type:   int16(unix.F_RDLCK),
		Whence: 0,
		Start:  0,
		Len:    0,
	}
	if err := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &flock); err != nil {
		return 0, fmt.Errorf("F_GETLK %s: %w", path, err)
	}
	if flock.Pid == 0 {
		return 0, fmt.Errorf("%s: no process holds the lock (ovs-vswitchd not running?)", path)
	}
	return int(flock.Pid), nil
}

type rpcRequest struct {
	ID     int           `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Error  json.RawMessage `json:"error"`
	Result json.RawMessage `json:"result"`
}

// call issues a single JSON-RPC request and returns its raw result. A
// response whose encoded form exactly fills the read buffer is treated as
// truncated — and therefore fatal, not best-effort — matching the original
// client's buffer-overflow contract; a legitimate response from
// ovs-vswitchd never comes close to that size.
func (c *Client) call(method string, params ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(); err != nil {
		return nil, err
	}

	c.id++
	req := rpcRequest{ID: c.id, Method: method, Params: params}

	enc := json.NewEncoder(c.conn)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("ovs: writing request: %w", err)
	}

	line, err := c.rd.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return nil, fmt.Errorf("ovs: response from ovs-vswitchd exceeded %d-byte buffer", bufferSize)
	}
	if err != nil {
		return nil, fmt.Errorf("ovs: reading response: %w", err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("ovs: decoding response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("ovs: response id %d does not match request id %d", resp.ID, req.ID)
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return nil, fmt.Errorf("ovs: %s: %s", method, resp.Error)
	}
	return resp.Result, nil
}

// appctl runs a control command the way ovs-appctl does: the command name
// is the JSON-RPC method, its arguments are the params, and the single
// string result is the command's plain-text output.
func (c *Client) appctl(command string, args ...string) (string, error) {
	params := make([]interface{}, 0, len(args))
	for _, a := range args {
		params = append(params, a)
	}

	result, err := c.call(command, params...)
	if err != nil {
		return "", err
	}

	var text string
	if err := json.Unmarshal(result, &text); err != nil {
		return "", fmt.Errorf("ovs: decoding %s output: %w", command, err)
	}
	return text, nil
}

// resolveBridgePort runs "dpif/show" and walks its bridge/port listing: a
// bare "name:" line introduces a new current bridge, and a "name N" line
// under it is a port entry. It returns the current bridge name and OF port
// number for the first port line whose name matches ifName — which, for
// inventory-time resolution, is the bond's own interface name.
func (c *Client) resolveBridgePort(ifName string) (brname string, ofport int, err error) {
	out, err := c.appctl("dpif/show")
	if err != nil {
		return "", 0, fmt.Errorf("ovs: dpif/show: %w", err)
	}

	brname, ofport, ok := parseDpifShow(out, ifName)
	if !ok {
		return "", 0, fmt.Errorf("ovs: interface %s not found in dpif/show", ifName)
	}
	return brname, ofport, nil
}

// parseDpifShow implements C6's "dpif/show" two-column scan (P8) in
// isolation from the control socket: a bare "name:" line introduces a new
// current bridge, and a "name N" line under it is a port entry.
func parseDpifShow(out, ifName string) (brname string, ofport int, ok bool) {
	var current string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)

		if len(fields) == 1 && strings.HasSuffix(fields[0], ":") {
			current = strings.TrimSuffix(fields[0], ":")
			continue
		}
		if current == "" || len(fields) < 2 {
			continue
		}
		if fields[0] == "LOCAL" {
			continue
		}

		port, perr := strconv.Atoi(fields[1])
		if perr != nil {
			continue
		}
		if fields[0] == ifName {
			return current, port, true
		}
	}

	return "", 0, false
}

// fdbReader implements bridge.FDBReader for an OVS bridge, using the
// datapath port found by resolveBridgePort to filter the bond's own
// entries out of "fdb/show".
type fdbReader struct {
	client    *Client
	ovsBridge string
	ofport    int
}

// Resolve discovers the true OVS bridge that owns ifName (the kernel-visible
// master of an OVS bond is the datapath device, not the logical bridge) via
// "dpif/show", then re-resolves that bridge's kernel ifindex with an
// ordinary getlink so the caller can record a complete bridge.Info.
func Resolve(c *Client, rc *rtnl.Conn, ifName string) (*bridge.Info, bridge.FDBReader, error) {
	brname, ofport, err := c.resolveBridgePort(ifName)
	if err != nil {
		return nil, nil, err
	}

	lm, err := rtnl.GetLinkByName(rc, brname)
	if err != nil {
		return nil, nil, fmt.Errorf("ovs: resolving ifindex of bridge %s: %w", brname, err)
	}

	info := &bridge.Info{Kind: bridge.KindOVS, Index: lm.Index, Name: brname}
	reader := &fdbReader{client: c, ovsBridge: brname, ofport: ofport}
	return info, reader, nil
}

// ReadFDB runs "fdb/show <bridge>" and adds every MAC/VLAN pair not owned
// by the bond's own OpenFlow port.
func (r *fdbReader) ReadFDB(dst *fdb.Set, bondIndex uint32) error {
	out, err := r.client.appctl("fdb/show", r.ovsBridge)
	if err != nil {
		return fmt.Errorf("ovs: fdb/show %s: %w", r.ovsBridge, err)
	}
	return readFDBFromText(dst, out, r.ofport)
}

// readFDBFromText implements C6's "fdb/show" filtering contract (P3) in
// isolation from the control socket: skip the header row and any row whose
// first field is "LOCAL", skip rows on the bond's own OpenFlow port and rows
// with an all-zero or broadcast MAC, and add everything else as a
// destination. ovs-vswitchd's "fdb/show" format is
// assumed stable: a row that isn't the header, isn't a LOCAL row, and still
// doesn't parse as "<port> <vlan> <mac>" means that assumption broke, which
// is a fatal error, not something to skip past.
func readFDBFromText(dst *fdb.Set, out string, ofport int) error {
	sc := bufio.NewScanner(strings.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			// header row: "port  VLAN  MAC  Age"
			first = false
			continue
		}
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "LOCAL") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("ovs: fdb/show: malformed row: %q", line)
		}

		port, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("ovs: fdb/show: malformed port in row: %q", line)
		}
		if port == ofport {
			continue
		}
		vlan64, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return fmt.Errorf("ovs: fdb/show: malformed vlan in row: %q", line)
		}
		mac, err := parseMAC(fields[2])
		if err != nil {
			return fmt.Errorf("ovs: fdb/show: malformed MAC in row: %q", line)
		}
		if mac == ([6]byte{}) || mac == broadcastMAC {
			continue
		}

		dst.Add(fdb.Destination{VLAN: uint16(vlan64), MAC: mac})
	}
	return nil
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return mac, fmt.Errorf("invalid MAC %q", s)
	}
	copy(mac[:], hw)
	return mac, nil
}
