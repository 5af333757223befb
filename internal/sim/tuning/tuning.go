package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the engine configuration loaded from tuning.yaml. Everything
// here is explicit per simulation; there is no process-wide state.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	RoundsPerSecond     int `yaml:"rounds_per_second"`
	PinsPerEdge         int `yaml:"pins_per_edge"`
	SnapshotEveryRounds int `yaml:"snapshot_every_rounds"`

	ListenAddr string `yaml:"listen_addr"`

	Log LogOptions `yaml:"log"`
}

type LogOptions struct {
	Dir        string `yaml:"dir"`
	RoundLog   bool   `yaml:"round_log"`
	IndexDB    bool   `yaml:"index_db"`
	IndexDBDir string `yaml:"index_db_dir"`
}

// Defaults returns a tuning usable without a config file.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		RoundsPerSecond:     10,
		PinsPerEdge:         2,
		SnapshotEveryRounds: 1000,
		ListenAddr:          ":8080",
		Log:                 LogOptions{Dir: "./data", RoundLog: true},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.RoundsPerSecond < 1 {
		return t, fmt.Errorf("tuning.yaml: rounds_per_second %d", t.RoundsPerSecond)
	}
	if t.PinsPerEdge < 1 {
		return t, fmt.Errorf("tuning.yaml: pins_per_edge %d", t.PinsPerEdge)
	}
	return t, nil
}
