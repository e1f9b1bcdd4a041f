// Package estimate holds the numeric rules for AI-suggested difficulty and
// time estimates, and the leaf-only aggregation used for every total.
package estimate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stepwise-app/stepwise/pkg/models"
)

// Minute ranges and steps.
const (
	MinMinutes = 5

	// MaxAnalyzeMinutes caps first-level AI suggestions.
	MaxAnalyzeMinutes = 120
	// MaxDecomposeMinutes caps re-decomposition suggestions.
	MaxDecomposeMinutes = 60
	// MaxAdjustMinutes caps manual adjustments at any depth.
	MaxAdjustMinutes = 120
	// AdjustStep is the size of one manual +/- click.
	AdjustStep = 5

	// DefaultAnalyzeMinutes is used when the AI gives no usable number.
	DefaultAnalyzeMinutes = 15
	// DefaultDecomposeMinutes is used when the AI gives no usable number.
	DefaultDecomposeMinutes = 10
)

// ClampMinutes rounds value to the nearest integer and clamps it into [min, max].
func ClampMinutes(value float64, min, max int) int {
	if math.IsNaN(value) {
		return min
	}
	rounded := math.Round(value)
	if rounded < float64(min) {
		return min
	}
	if rounded > float64(max) {
		return max
	}
	return int(rounded)
}

// AdjustMinutes applies a manual delta with the UI clamp.
func AdjustMinutes(current, delta int) int {
	return ClampMinutes(float64(current)+float64(delta), MinMinutes, MaxAdjustMinutes)
}

// MinutesOrDefault coerces a loosely typed AI value into a number.
// Non-numeric, non-finite and zero values yield fallback.
func MinutesOrDefault(raw any, fallback float64) float64 {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return fallback
		}
		v = parsed
	default:
		return fallback
	}
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// NormalizeDifficulty maps anything that is not exactly easy, medium or hard to medium.
func NormalizeDifficulty(raw string) models.Difficulty {
	d := models.Difficulty(raw)
	if d.Valid() {
		return d
	}
	return models.DifficultyMedium
}

// TreeItem is anything stored as a parent-linked flat list.
type TreeItem interface {
	ItemID() string
	ParentItemID() string
}

// parentSet returns the ids referenced as a parent by some item.
func parentSet[T TreeItem](items []T) map[string]struct{} {
	parents := make(map[string]struct{}, len(items))
	for _, item := range items {
		if p := item.ParentItemID(); p != "" {
			parents[p] = struct{}{}
		}
	}
	return parents
}

// Leaves returns the items that no other item in the collection names as parent.
func Leaves[T TreeItem](items []T) []T {
	parents := parentSet(items)
	leaves := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := parents[item.ItemID()]; !ok {
			leaves = append(leaves, item)
		}
	}
	return leaves
}

// LeafTotal sums minutes over the leaves of items.
// A decomposed parent's own minutes are never counted; its children stand in for it.
func LeafTotal[T TreeItem](items []T, minutes func(T) int) int {
	total := 0
	for _, leaf := range Leaves(items) {
		total += minutes(leaf)
	}
	return total
}

// EstimatedMinutes reads a node's current estimate.
func EstimatedMinutes(n models.Node) int { return n.EstimatedMinutes }

// ActualMinutes reads a subtask's tracked time, zero when untracked.
func ActualMinutes(s models.Subtask) int { return s.Actual() }

// FormatMinutes renders minutes as "45m", "1h" or "1h 30m".
// Zero and negative values render as "0m".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rest)
}
