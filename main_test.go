package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}

	if versionCmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", versionCmd.Use)
	}

	if versionCmd.Short != "Print version information" {
		t.Errorf("Unexpected Short: %s", versionCmd.Short)
	}
}

func TestVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	originalStdout := versionCmd.OutOrStdout()
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(originalStdout)

	versionOutputJSON = false

	if err := versionCmd.RunE(versionCmd, []string{}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "roundtable version") {
		t.Errorf("version output does not contain 'roundtable version'. Output:\n%s", output)
	}
	if !strings.Contains(output, "commit:") {
		t.Errorf("version output does not contain 'commit:'. Output:\n%s", output)
	}
	if !strings.Contains(output, "built:") {
		t.Errorf("version output does not contain 'built:'. Output:\n%s", output)
	}
}

func TestVersionOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	originalStdout := versionCmd.OutOrStdout()
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(originalStdout)

	versionOutputJSON = true
	defer func() { versionOutputJSON = false }()

	if err := versionCmd.RunE(versionCmd, []string{}); err != nil {
		t.Fatalf("version command with --output-json failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("version --output-json produced invalid JSON: %v\nOutput:\n%s", err, buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	expected := []string{
		"session", "transcript", "recover",
		"insight", "archive",
		"auth", "config", "completion", "version",
	}

	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range expected {
		if !registered[name] {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestCommandGroups(t *testing.T) {
	groups := map[string]bool{}
	for _, g := range rootCmd.Groups() {
		groups[g.ID] = true
	}
	for _, id := range []string{"session", "analysis", "setup"} {
		if !groups[id] {
			t.Errorf("group %q not registered on root", id)
		}
	}
}
