package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	doc := `
protocol_version: "1.0"
rounds_per_second: 25
pins_per_edge: 2
snapshot_every_rounds: 500
listen_addr: ":9090"
log:
  dir: /tmp/amoebot
  round_log: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RoundsPerSecond != 25 || got.PinsPerEdge != 2 || got.ListenAddr != ":9090" {
		t.Fatalf("loaded %+v", got)
	}
	if !got.Log.RoundLog || got.Log.Dir != "/tmp/amoebot" {
		t.Fatalf("log options %+v", got.Log)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("rounds_per_second: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("zero round rate accepted")
	}
}
