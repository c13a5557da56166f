package deepq

import (
	"errors"
	"fmt"
	"time"

	"github.com/montplusa/deepq/pkg/replay"
)

// Player produces transitions by stepping one or more environments. One
// Play call may return several transitions when multiple environments are
// stepped together.
type Player interface {
	Play() ([]*replay.Transition, error)
}

// Schedule is an external counter the loop advances once per environment
// step.
type Schedule interface {
	AddTime(steps int)
}

// TrainConfig holds every externally supplied training-run parameter.
type TrainConfig struct {
	// NumSteps is the number of environment steps to run.
	NumSteps int
	// Player gathers experience.
	Player Player
	// Buffer stores and samples experience.
	Buffer replay.Buffer
	// TrainInterval is the number of steps between gradient updates.
	// Defaults to 1.
	TrainInterval int
	// TargetInterval is the number of steps between target-network syncs.
	// Defaults to 8192.
	TargetInterval int
	// BatchSize is the size of sampled mini-batches. Defaults to 32.
	BatchSize int
	// MinBufferSize gates training until the buffer holds this many
	// transitions. Zero trains from the first step.
	MinBufferSize int
	// Schedules are advanced by one on every step.
	Schedules []Schedule
	// HandleEpisode is called after every completed episode with the
	// episode length, its total reward, and a snapshot of the cumulative
	// reward of every environment slot. Nil means no-op.
	HandleEpisode func(steps int, totalReward float64, envRewards []float64)
	// Timeout is an optional wall-clock limit, checked once per Play call.
	// Reaching it ends the run normally. Nil disables the check.
	Timeout *time.Duration
	// SaveInterval is the number of episodes between checkpoints. Zero
	// disables checkpointing.
	SaveInterval int
	// CheckpointDir receives the snapshots. Defaults to
	// "checkpoints/deepq". All snapshots are retained.
	CheckpointDir string
	// RestorePath optionally names a snapshot to load before training.
	RestorePath string
	// NumEnvs is the number of environment reward slots. Defaults to 1.
	NumEnvs int
}

func (cfg TrainConfig) withDefaults() (TrainConfig, error) {
	if cfg.Player == nil {
		return cfg, errors.New("a player is required")
	}
	if cfg.Buffer == nil {
		return cfg, errors.New("a replay buffer is required")
	}
	if cfg.NumSteps < 0 {
		return cfg, errors.New("step count must not be negative")
	}
	if cfg.TrainInterval <= 0 {
		cfg.TrainInterval = 1
	}
	if cfg.TargetInterval <= 0 {
		cfg.TargetInterval = 8192
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MinBufferSize < 0 {
		cfg.MinBufferSize = 0
	}
	if cfg.SaveInterval < 0 {
		cfg.SaveInterval = 0
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = DefaultCheckpointDir
	}
	if cfg.NumEnvs <= 0 {
		cfg.NumEnvs = 1
	}
	return cfg, nil
}

// Train runs the training loop: it pulls transitions from the player,
// inserts them into the buffer, and fires gradient steps, target syncs,
// episode callbacks, and checkpoints at their cadences. Every cadence uses
// reached-or-passed semantics and rebases its next threshold on the step
// count at the moment it fires, so thresholds never backlog.
//
// Train returns nil both on completing NumSteps and on hitting the
// timeout; configuration, checkpoint, and data-shape failures are
// returned as errors.
func (d *DQN) Train(cfg TrainConfig) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	if cfg.RestorePath != "" {
		fmt.Println("restoring snapshot:", cfg.RestorePath)
		if err := d.online.Load(cfg.RestorePath); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	d.SyncTarget()

	stepsTaken := 0
	numEpisodes := 0
	nextTargetUpdate := cfg.TargetInterval
	nextTrainStep := cfg.TrainInterval
	startTime := time.Now()
	envRewards := make([]float64, cfg.NumEnvs)

	for stepsTaken < cfg.NumSteps {
		if cfg.Timeout != nil && time.Since(startTime) > *cfg.Timeout {
			return nil
		}
		transitions, err := cfg.Player.Play()
		if err != nil {
			return fmt.Errorf("play: %w", err)
		}
		for _, trans := range transitions {
			if trans.IsLast {
				if trans.EnvID >= 0 && trans.EnvID < len(envRewards) {
					envRewards[trans.EnvID] = trans.TotalReward
				}
				if cfg.HandleEpisode != nil {
					snapshot := make([]float64, len(envRewards))
					copy(snapshot, envRewards)
					cfg.HandleEpisode(trans.EpisodeStep+1, trans.TotalReward, snapshot)
				}
				if cfg.SaveInterval > 0 && numEpisodes%cfg.SaveInterval == 0 {
					if err := d.SaveCheckpoint(cfg.CheckpointDir, numEpisodes); err != nil {
						return err
					}
				}
				numEpisodes++
			}

			cfg.Buffer.AddSample(trans)
			stepsTaken++
			for _, sched := range cfg.Schedules {
				sched.AddTime(1)
			}

			if cfg.Buffer.Size() >= cfg.MinBufferSize && stepsTaken >= nextTrainStep {
				nextTrainStep = stepsTaken + cfg.TrainInterval
				batch, err := cfg.Buffer.Sample(cfg.BatchSize)
				if err != nil {
					return fmt.Errorf("sample batch: %w", err)
				}
				losses, err := d.GradientStep(batch)
				if err != nil {
					return err
				}
				cfg.Buffer.UpdateWeights(batch, losses)
			}

			if stepsTaken >= nextTargetUpdate {
				nextTargetUpdate = stepsTaken + cfg.TargetInterval
				d.SyncTarget()
			}
		}
	}
	return nil
}
