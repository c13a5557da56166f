package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"

	"github.com/montplusa/deepq/pkg/deepq"
	"github.com/montplusa/deepq/pkg/env/cartpole"
	"github.com/montplusa/deepq/pkg/player"
	"github.com/montplusa/deepq/pkg/qnet"
	"github.com/montplusa/deepq/pkg/replay"
)

func main() {
	numSteps := flag.Int("steps", 50000, "Number of environment steps to train for")
	gamma := flag.Float64("gamma", 0.99, "Per-step discount factor")
	lr := flag.Float64("lr", 1e-3, "Adam learning rate")
	hidden := flag.String("hidden", "64,64", "Comma-separated hidden layer sizes")
	batchSize := flag.Int("batch", 32, "Mini-batch size")
	minBuffer := flag.Int("min-buffer", 500, "Minimum buffer fill before training")
	bufferSize := flag.Int("buffer", 20000, "Replay buffer capacity")
	trainInterval := flag.Int("train-interval", 1, "Steps between gradient updates")
	targetInterval := flag.Int("target-interval", 500, "Steps between target syncs")
	nStep := flag.Int("nstep", 3, "Steps per n-step transition")
	epsStart := flag.Float64("eps-start", 1.0, "Initial exploration epsilon")
	epsEnd := flag.Float64("eps-end", 0.02, "Final exploration epsilon")
	epsHorizon := flag.Int("eps-horizon", 10000, "Steps over which epsilon anneals")
	alpha := flag.Float64("alpha", 0.6, "Priority exponent")
	beta := flag.Float64("beta", 0.4, "Importance-sampling exponent")
	saveInterval := flag.Int("save", 50, "Episodes between checkpoints (0 disables)")
	checkpointDir := flag.String("checkpoint-dir", deepq.DefaultCheckpointDir, "Checkpoint directory")
	restore := flag.String("restore", "", "Snapshot to restore before training")
	timeoutSec := flag.Float64("timeout", 0, "Wall-clock limit in seconds (0 disables)")
	reportInterval := flag.Int("report", 10, "Report progress every N episodes")
	seed := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	layers, err := parseLayers(*hidden)
	if err != nil {
		log.Fatalf("Bad -hidden value: %v", err)
	}

	netCfg := qnet.Config{
		InputSize:    cartpole.ObsSize,
		NumActions:   cartpole.NumActions,
		HiddenLayers: layers,
		LearningRate: *lr,
	}
	online, err := qnet.New(netCfg)
	if err != nil {
		log.Fatalf("Failed to create online network: %v", err)
	}
	target, err := qnet.New(netCfg)
	if err != nil {
		log.Fatalf("Failed to create target network: %v", err)
	}

	session, err := deepq.New(online, target, qnet.SliceVectorizer{Size: cartpole.ObsSize}, *gamma)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	buffer, err := replay.NewPrioritizedBuffer(*bufferSize, *alpha, *beta, 0, rng)
	if err != nil {
		log.Fatalf("Failed to create replay buffer: %v", err)
	}

	epsilon := player.NewLinearSchedule(*epsStart, *epsEnd, *epsHorizon)
	agent := player.NewEpsilonGreedy(online, epsilon, rng)
	env := cartpole.New(rng, 0)
	basic := player.NewBasicPlayer(env, agent)
	stepper, err := player.NewNStepPlayer(basic, *nStep)
	if err != nil {
		log.Fatalf("Failed to create n-step player: %v", err)
	}

	fmt.Println("Starting cart-pole training...")
	fmt.Println("- Steps:", *numSteps)
	fmt.Println("- Discount:", *gamma)
	fmt.Println("- Batch size:", *batchSize)
	fmt.Println("- N-step:", *nStep)
	fmt.Println("- Epsilon:", *epsStart, "->", *epsEnd, "over", *epsHorizon, "steps")
	fmt.Println()

	start := time.Now()
	episodes := 0
	bestReward := 0.0
	handleEp := func(steps int, totalReward float64, envRewards []float64) {
		episodes++
		if totalReward > bestReward {
			bestReward = totalReward
		}
		if *reportInterval > 0 && episodes%*reportInterval == 0 {
			fmt.Printf("%s episode %d | length %d | reward %s | best %.0f | eps %.3f | elapsed %s\n",
				aurora.Cyan("[train]"), episodes, steps,
				aurora.Green(fmt.Sprintf("%.0f", totalReward)), bestReward,
				epsilon.Value(), time.Since(start).Round(time.Second))
		}
	}

	cfg := deepq.TrainConfig{
		NumSteps:       *numSteps,
		Player:         stepper,
		Buffer:         buffer,
		TrainInterval:  *trainInterval,
		TargetInterval: *targetInterval,
		BatchSize:      *batchSize,
		MinBufferSize:  *minBuffer,
		Schedules:      []deepq.Schedule{epsilon},
		HandleEpisode:  handleEp,
		SaveInterval:   *saveInterval,
		CheckpointDir:  *checkpointDir,
		RestorePath:    *restore,
	}
	if *timeoutSec > 0 {
		timeout := time.Duration(*timeoutSec * float64(time.Second))
		cfg.Timeout = &timeout
	}

	if err := session.Train(cfg); err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	stats := session.Stats()
	fmt.Println()
	fmt.Println(aurora.Bold("Training completed!"))
	fmt.Printf("Episodes: %d | Gradient steps: %d | Target syncs: %d | Best reward: %.0f\n",
		episodes, stats.TrainSteps, stats.TargetSyncs, bestReward)
	fmt.Printf("Total training time: %s\n", time.Since(start).Round(time.Second))
}

func parseLayers(s string) ([]int, error) {
	var layers []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("layer size %q must be a positive integer", part)
		}
		layers = append(layers, n)
	}
	return layers, nil
}
