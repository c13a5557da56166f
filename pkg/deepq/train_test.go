package deepq

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/montplusa/deepq/pkg/replay"
)

// terminalPlayer emits one single-step terminal transition per call, each
// forming its own episode with reward 1.
type terminalPlayer struct {
	episodeID int
}

func (p *terminalPlayer) Play() ([]*replay.Transition, error) {
	tr := &replay.Transition{
		Obs:         []float64{0},
		ModelOut:    replay.ModelOut{Actions: []int{0}},
		Rewards:     []float64{1},
		IsLast:      true,
		EpisodeID:   p.episodeID,
		TotalReward: 1,
		Weight:      1,
	}
	p.episodeID++
	return []*replay.Transition{tr}, nil
}

// errorPlayer fails on any call; tests use it to prove Play never ran.
type errorPlayer struct{}

func (errorPlayer) Play() ([]*replay.Transition, error) {
	return nil, errors.New("player must not be called")
}

// recordingBuffer stores every transition and records how many insertions
// had happened at each Sample call.
type recordingBuffer struct {
	samples  []*replay.Transition
	sampleAt []int
	updates  int
}

func (b *recordingBuffer) AddSample(t *replay.Transition) {
	b.samples = append(b.samples, t)
}

func (b *recordingBuffer) Sample(n int) (replay.Batch, error) {
	if len(b.samples) == 0 {
		return nil, replay.ErrBufferEmpty
	}
	b.sampleAt = append(b.sampleAt, len(b.samples))
	batch := make(replay.Batch, n)
	for i := range batch {
		batch[i] = b.samples[i%len(b.samples)]
	}
	return batch, nil
}

func (b *recordingBuffer) UpdateWeights(batch replay.Batch, losses []float64) {
	b.updates++
}

func (b *recordingBuffer) Size() int {
	return len(b.samples)
}

type countingSchedule struct {
	steps int
}

func (s *countingSchedule) AddTime(n int) { s.steps += n }

func TestTrainCadence(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	buffer := &recordingBuffer{}

	err := d.Train(TrainConfig{
		NumSteps:      12,
		Player:        &terminalPlayer{},
		Buffer:        buffer,
		TrainInterval: 4,
		BatchSize:     2,
	})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	want := []int{4, 8, 12}
	if !reflect.DeepEqual(buffer.sampleAt, want) {
		t.Fatalf("expected training at steps %v, got %v", want, buffer.sampleAt)
	}
	if buffer.updates != len(want) {
		t.Fatalf("expected %d weight updates, got %d", len(want), buffer.updates)
	}
}

func TestTrainWaitsForBufferFill(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	buffer := &recordingBuffer{}

	err := d.Train(TrainConfig{
		NumSteps:      8,
		Player:        &terminalPlayer{},
		Buffer:        buffer,
		TrainInterval: 1,
		BatchSize:     2,
		MinBufferSize: 5,
	})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	want := []int{5, 6, 7, 8}
	if !reflect.DeepEqual(buffer.sampleAt, want) {
		t.Fatalf("expected training at steps %v, got %v", want, buffer.sampleAt)
	}
}

func TestTrainEndToEnd(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	buffer := &recordingBuffer{}
	sched := &countingSchedule{}

	var epLengths []int
	var epRewards []float64
	err := d.Train(TrainConfig{
		NumSteps:       10,
		Player:         &terminalPlayer{},
		Buffer:         buffer,
		TrainInterval:  1,
		TargetInterval: 5,
		BatchSize:      2,
		Schedules:      []Schedule{sched},
		HandleEpisode: func(steps int, totalReward float64, envRewards []float64) {
			epLengths = append(epLengths, steps)
			epRewards = append(epRewards, totalReward)
			if len(envRewards) != 1 {
				t.Fatalf("expected one environment reward slot, got %d", len(envRewards))
			}
		},
	})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if len(buffer.samples) != 10 {
		t.Fatalf("expected 10 replay insertions, got %d", len(buffer.samples))
	}
	if len(epRewards) != 10 {
		t.Fatalf("expected 10 episode callbacks, got %d", len(epRewards))
	}
	for i, rew := range epRewards {
		if rew != 1.0 {
			t.Fatalf("expected episode %d to report total reward 1.0, got %v", i, rew)
		}
		if epLengths[i] != 1 {
			t.Fatalf("expected episode %d to report length 1, got %d", i, epLengths[i])
		}
	}
	if len(buffer.sampleAt) != 10 {
		t.Fatalf("expected a training step at every step, got %d", len(buffer.sampleAt))
	}
	// Initial sync plus the crossings at steps 5 and 10.
	if d.Stats().TargetSyncs != 3 {
		t.Fatalf("expected 3 target syncs, got %d", d.Stats().TargetSyncs)
	}
	if sched.steps != 10 {
		t.Fatalf("expected schedules advanced 10 times, got %d", sched.steps)
	}
}

func TestTrainTimeoutExitsBeforeStepping(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	buffer := &recordingBuffer{}

	timeout := time.Duration(0)
	err := d.Train(TrainConfig{
		NumSteps: 100,
		Player:   errorPlayer{},
		Buffer:   buffer,
		Timeout:  &timeout,
	})
	if err != nil {
		t.Fatalf("expected timeout to end the run normally, got %v", err)
	}
	if len(buffer.samples) != 0 {
		t.Fatalf("expected no transitions processed, got %d", len(buffer.samples))
	}
}

func TestTrainSavesCheckpoints(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	dir := filepath.Join(t.TempDir(), "snapshots")

	err := d.Train(TrainConfig{
		NumSteps:      3,
		Player:        &terminalPlayer{},
		Buffer:        &recordingBuffer{},
		MinBufferSize: 100, // no training, checkpoint bookkeeping only
		SaveInterval:  1,
		CheckpointDir: dir,
	})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	for _, episode := range []int{0, 1, 2} {
		path := filepath.Join(dir, fmt.Sprintf("model-%d.json", episode))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected checkpoint %s: %v", path, err)
		}
	}
}

func TestTrainRestoreRoundTrip(t *testing.T) {
	saved := testSession(t, constNetwork(t, 1.5, -0.5), constNetwork(t, 0, 0), 0.99)
	dir := t.TempDir()
	if err := saved.SaveCheckpoint(dir, 7); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	path := filepath.Join(dir, "model-7.json")

	online := constNetwork(t, 0, 0)
	target := constNetwork(t, 0, 0)
	restored := testSession(t, online, target, 0.99)
	err := restored.Train(TrainConfig{
		NumSteps:    0,
		Player:      errorPlayer{},
		Buffer:      &recordingBuffer{},
		RestorePath: path,
	})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	want := [][][]float64{{{0, 1.5}, {0, -0.5}}}
	if !reflect.DeepEqual(online.Weights(), want) {
		t.Fatalf("expected restored online parameters %v, got %v", want, online.Weights())
	}
	// The pre-loop sync runs after the restore, so the target matches too.
	if !reflect.DeepEqual(target.Weights(), want) {
		t.Fatalf("expected target parameters synced from the restored snapshot")
	}
}

func TestTrainRestoreMissingSnapshot(t *testing.T) {
	d := testSession(t, constNetwork(t, 0, 0), constNetwork(t, 0, 0), 0.99)
	err := d.Train(TrainConfig{
		NumSteps:    1,
		Player:      &terminalPlayer{},
		Buffer:      &recordingBuffer{},
		RestorePath: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil {
		t.Fatalf("expected a fatal error for a missing restore snapshot")
	}
}
