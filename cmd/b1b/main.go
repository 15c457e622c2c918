// Command b1b watches active-backup bonds enslaved to a bridge and emits
// gratuitous ARPs for the bridge's forwarding database on every failover,
// compensating for the kernel only announcing the bond's own MAC.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/dispatch"
	"github.com/ipilcher/b1b/internal/logx"
	"github.com/ipilcher/b1b/internal/session"
)

type options struct {
	syslog bool
	stderr bool
	debug  bool
	bonds  []string
}

// parseArgs hand-rolls the exact left-to-right scan the original CLI
// required: -l/--syslog and -e/--stderr are mutually exclusive, any
// option repeated (including -d/--debug) is fatal. cobra's flag parsing
// is disabled for this command because pflag silently collapses repeated
// boolean flags, which would hide the duplicate-flag error this contract
// requires.
func parseArgs(args []string) (*options, error) {
	var o options
	var sawSyslog, sawStderr, sawDebug bool

	for _, a := range args {
		switch a {
		case "-l", "--syslog":
			if sawSyslog {
				return nil, fmt.Errorf("-l/--syslog specified more than once")
			}
			sawSyslog = true
			o.syslog = true
		case "-e", "--stderr":
			if sawStderr {
				return nil, fmt.Errorf("-e/--stderr specified more than once")
			}
			sawStderr = true
			o.stderr = true
		case "-d", "--debug":
			if sawDebug {
				return nil, fmt.Errorf("-d/--debug specified more than once")
			}
			sawDebug = true
			o.debug = true
		default:
			if len(a) > 1 && a[0] == '-' {
				return nil, fmt.Errorf("unrecognized option: %s", a)
			}
			o.bonds = append(o.bonds, a)
		}
	}

	if o.syslog && o.stderr {
		return nil, fmt.Errorf("-l/--syslog and -e/--stderr are mutually exclusive")
	}

	return &o, nil
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "b1b [options] [bond-name ...]",
		Short:                 "Gratuitous-ARP failover helper for bridged active-backup bonds",
		DisableFlagParsing:    true,
		SilenceUsage:          true,
		SilenceErrors:         true,
		Args:                  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := parseArgs(args)
			if err != nil {
				return err
			}
			return run(o)
		},
	}
}

func run(o *options) error {
	syslog := o.syslog
	if !o.syslog && !o.stderr {
		// When stderr isn't a tty and no style was requested explicitly,
		// default to the syslog-friendly <priority> prefix.
		syslog = !isTerminal(os.Stderr.Fd())
	}

	log := logx.New(os.Stderr, syslog, o.debug)

	sess, err := session.New(log)
	if err != nil {
		log.Fatal("%v", err)
	}
	defer sess.Close()

	sess.Build(o.bonds)

	log.Info("ready, watching %d bond(s)", len(sess.Inventory))
	if err := dispatch.Run(log, sess.Multicast, sess.ARP, sess.Inventory); err != nil {
		log.Fatal("%v", err)
	}
	log.Info("exiting")
	return nil
}

func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}
