package main

import "testing"

func TestParseArgsDuplicateDebugIsFatal(t *testing.T) {
	_, err := parseArgs([]string{"-d", "-d"})
	if err == nil {
		t.Fatal("expected an error for duplicate -d, got nil")
	}
}

func TestParseArgsDuplicateSyslogIsFatal(t *testing.T) {
	_, err := parseArgs([]string{"--syslog", "--syslog"})
	if err == nil {
		t.Fatal("expected an error for duplicate --syslog, got nil")
	}
}

func TestParseArgsSyslogAndStderrAreMutuallyExclusive(t *testing.T) {
	_, err := parseArgs([]string{"-l", "-e"})
	if err == nil {
		t.Fatal("expected an error for -l combined with -e, got nil")
	}
}

func TestParseArgsUnrecognizedOptionIsFatal(t *testing.T) {
	_, err := parseArgs([]string{"--bogus"})
	if err == nil {
		t.Fatal("expected an error for an unrecognized option, got nil")
	}
}

func TestParseArgsAcceptsBondNamesAndFlagsTogether(t *testing.T) {
	o, err := parseArgs([]string{"-d", "bond0", "bond1"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !o.debug {
		t.Fatal("debug flag not set")
	}
	if len(o.bonds) != 2 || o.bonds[0] != "bond0" || o.bonds[1] != "bond1" {
		t.Fatalf("bonds = %v, want [bond0 bond1]", o.bonds)
	}
}

func TestParseArgsNoFlagsIsFine(t *testing.T) {
	o, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if o.syslog || o.stderr || o.debug || len(o.bonds) != 0 {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}
