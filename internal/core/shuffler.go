package core

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Shuffler produces a random ordering of track groups bounded by a goal
// duration. Only group order is randomized; tracks inside a group keep their
// playlist order.
type Shuffler struct {
	rng    *rand.Rand
	logger *zap.Logger
}

func NewShuffler(logger *zap.Logger) *Shuffler {
	return NewSeededShuffler(time.Now().UnixNano(), logger)
}

// NewSeededShuffler creates a shuffler with a fixed seed, used by tests.
func NewSeededShuffler(seed int64, logger *zap.Logger) *Shuffler {
	return &Shuffler{
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // playlist shuffling doesn't need crypto randomness
		logger: logger,
	}
}

// Shuffle uniformly permutes the groups and takes them in permuted order until
// the cumulative duration reaches the goal. The group that crosses the goal is
// included, then selection stops.
func (s *Shuffler) Shuffle(groups []TrackGroup, goal time.Duration) []TrackGroup {
	permuted := make([]TrackGroup, len(groups))
	copy(permuted, groups)

	// Fisher-Yates
	for i := len(permuted) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		permuted[i], permuted[j] = permuted[j], permuted[i]
	}

	var selected []TrackGroup
	var total time.Duration
	for _, group := range permuted {
		if total >= goal {
			break
		}

		selected = append(selected, group)
		total += group.Duration()

		s.logger.Debug("Selected group",
			zap.String("name", group.Name),
			zap.Int("tracks", len(group.Tracks)),
			zap.Duration("groupDuration", group.Duration()),
			zap.Duration("cumulative", total))
	}

	s.logger.Info("Shuffle complete",
		zap.Int("groupsAvailable", len(groups)),
		zap.Int("groupsSelected", len(selected)),
		zap.Float64("playTimeHours", total.Hours()))

	return selected
}
