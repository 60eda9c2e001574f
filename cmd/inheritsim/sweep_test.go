package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/export"
	"github.com/GoSim-25-26J-441/inheritance-core/internal/succession"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func readDocument(t *testing.T, path string) export.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return doc
}

func TestSweepWritesCSVToStdout(t *testing.T) {
	out, err := execute(t, "sweep", "--trials", "20", "--seed", "7", "--workers", "2", "--log-level", "error")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 21 {
		t.Fatalf("expected header plus 20 rows, got %d lines", len(lines))
	}
	want := models.AxisInitialFraction + "," + models.AxisFinalFraction
	if lines[0] != want {
		t.Fatalf("unexpected header %q", lines[0])
	}
}

func TestSweepIsReproducible(t *testing.T) {
	args := []string{"sweep", "--trials", "30", "--seed", "11", "--log-level", "error"}

	first, err := execute(t, append(args, "--workers", "1")...)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	second, err := execute(t, append(args, "--workers", "4")...)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if first != second {
		t.Fatal("same seed must give identical output regardless of workers")
	}
}

func TestSweepWritesJSONFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "points.json")
	out, err := execute(t, "sweep", "--trials", "25", "--seed", "3", "--timeweighted",
		"--format", "json", "--out", outPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if out != "" {
		t.Fatalf("expected nothing on stdout, got %q", out)
	}

	doc := readDocument(t, outPath)
	if doc.Requested != 25 {
		t.Fatalf("expected 25 requested, got %d", doc.Requested)
	}
	if !doc.TimeWeighted {
		t.Fatal("expected time-weighted sweep")
	}
	if doc.Seed != 3 {
		t.Fatalf("expected seed 3, got %d", doc.Seed)
	}
	if len(doc.Points) != doc.Succeeded {
		t.Fatalf("points %d do not match succeeded %d", len(doc.Points), doc.Succeeded)
	}
	if doc.Summary == nil {
		t.Fatal("expected summary in JSON output")
	}
	if doc.XLabel != models.AxisInitialFraction || doc.YLabel != models.AxisFinalFraction {
		t.Fatalf("unexpected labels %q / %q", doc.XLabel, doc.YLabel)
	}
}

func TestSweepFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeConfig(t, `
network:
  nodes: 100
  group_size: 10
  executor_offsets: [1, 2, 3]
  quorum: 2
sampling:
  bucket_size: 25
sweep:
  trials: 5
  seed: 9
  fraction_mode: grid
`)
	outPath := filepath.Join(t.TempDir(), "points.json")

	_, err := execute(t, "sweep", "--config", cfgPath, "--trials", "8",
		"--format", "json", "--out", outPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	doc := readDocument(t, outPath)
	if doc.Nodes != 100 {
		t.Fatalf("expected 100 nodes from config, got %d", doc.Nodes)
	}
	if doc.Requested != 8 {
		t.Fatalf("expected --trials to override config, got %d", doc.Requested)
	}
	if doc.Seed != 9 {
		t.Fatalf("expected seed 9 from config, got %d", doc.Seed)
	}
	for i, p := range doc.Points {
		if want := float64(i) / 8; p.Initial != want {
			t.Fatalf("grid point %d: expected initial %v, got %v", i, want, p.Initial)
		}
	}
}

func TestSweepErrors(t *testing.T) {
	badGraph := writeConfig(t, `
network:
  nodes: 600
  group_size: 70
`)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "unknown format", args: []string{"sweep", "--format", "xml"}, want: export.ErrUnknownFormat},
		{name: "zero bins", args: []string{"sweep", "--bins", "0"}},
		{name: "missing config", args: []string{"sweep", "--config", filepath.Join(t.TempDir(), "absent.yaml")}},
		{name: "invalid trials", args: []string{"sweep", "--trials", "-1"}},
		{name: "unknown fraction mode", args: []string{"sweep", "--fraction-mode", "spiral"}},
		{name: "non bijective graph", args: []string{"sweep", "--config", badGraph}, want: succession.ErrConfiguration},
		{name: "extra argument", args: []string{"sweep", "now"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--log-level", "error")...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"sweep", "--trials", "1000", "--seed", "1", "--log-level", "error"})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.HasPrefix(out.String(), models.AxisInitialFraction) {
		t.Fatal("expected the partial result to be exported")
	}
}
