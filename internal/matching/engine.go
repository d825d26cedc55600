// Package matching scores open tasks for worker discovery. Everything here
// is a pure function of its inputs: identical snapshots produce identical
// orderings.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/taskpin/taskpin/internal/task"
)

const (
	earthRadiusKm = 6371

	// farAwayKm stands in for the distance when either side has no
	// coordinates. A task with missing location is deprioritized, never
	// hidden.
	farAwayKm = 9999

	skillBonus = 10
)

// WorkerProfile is the immutable matching view of a worker: where they are
// and what they do. Skills are normalized to a lowercase set.
type WorkerProfile struct {
	ID     string
	Lat    *float64
	Lng    *float64
	skills map[string]struct{}
}

func NewWorkerProfile(id string, lat, lng *float64, skills []string) WorkerProfile {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return WorkerProfile{ID: id, Lat: lat, Lng: lng, skills: set}
}

func (p WorkerProfile) HasSkill(category string) bool {
	if category == "" {
		return false
	}
	_, ok := p.skills[strings.ToLower(category)]
	return ok
}

// RankedTask is an open task annotated with its distance and score for one
// worker.
type RankedTask struct {
	Task       *task.Task
	DistanceKm float64
	Score      float64
}

// Rank scores every task against the profile and orders the result by
// descending score. The sort is stable: ties keep the input order, so the
// ranking is reproducible for identical snapshots.
func Rank(tasks []*task.Task, profile WorkerProfile) []RankedTask {
	ranked := make([]RankedTask, 0, len(tasks))
	for _, t := range tasks {
		dist := farAwayKm * 1.0
		if profile.Lat != nil && profile.Lng != nil && t.Lat != nil && t.Lng != nil {
			dist = DistanceKm(*profile.Lat, *profile.Lng, *t.Lat, *t.Lng)
		}

		score := -dist
		if profile.HasSkill(t.Category) {
			score += skillBonus
		}

		ranked = append(ranked, RankedTask{Task: t, DistanceKm: dist, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// DistanceKm is the great-circle (haversine) distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
