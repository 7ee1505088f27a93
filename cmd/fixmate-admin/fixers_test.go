package main

import (
	"strings"
	"testing"
)

func TestParseRoster(t *testing.T) {
	roster, err := parseRoster(strings.NewReader(`
fixers:
  - name: Sipho Dlamini
    phone: "082 555 0101"
    skills: [plumbing, geysers]
    location: {lat: -26.2041, lon: 28.0473}
    approved: true
  - name: Lerato Mokoena
    phone: "+27835550102"
    skills: [electrical]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(roster.Fixers) != 2 {
		t.Fatalf("expected 2 fixers, got %d", len(roster.Fixers))
	}

	first := roster.Fixers[0].request()
	if first.Skills != "plumbing,geysers" || !first.Approved || first.Latitude == nil || *first.Latitude != -26.2041 {
		t.Fatalf("unexpected request %+v", first)
	}
	if second := roster.Fixers[1].request(); second.Latitude != nil || second.Approved {
		t.Fatalf("unexpected request %+v", second)
	}
}

func TestParseRosterRejectsUnknownFields(t *testing.T) {
	if _, err := parseRoster(strings.NewReader("fixers:\n  - name: X\n    rating: 5\n")); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d %v", id, err)
	}
	for _, raw := range []string{"", "abc", "0", "-3"} {
		if _, err := parseID(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"fixers", "create"},
		{"fixers", "import"},
		{"fixers", "vet"},
		{"fixers", "activate"},
		{"fixers", "deactivate"},
		{"clients", "admin"},
		{"clients", "delete"},
		{"export", "jobs"},
		{"version"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(out.String(), "fixmate-admin version: unknown") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
