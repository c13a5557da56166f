package deepq

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultCheckpointDir is where Train writes snapshots when TrainConfig
// does not name a directory.
const DefaultCheckpointDir = "checkpoints/deepq"

// SaveCheckpoint writes a snapshot of the online network into dir, tagged
// by episode count. The directory is created if absent. Snapshots carry
// network parameters only; schedule counters are never part of one.
func (d *DQN) SaveCheckpoint(dir string, episodes int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("model-%d.json", episodes))
	if err := d.online.Save(path); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
