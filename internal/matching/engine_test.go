package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin/internal/task"
)

func ptr(v float64) *float64 { return &v }

func openTask(id, category string, lat, lng *float64) *task.Task {
	return &task.Task{
		ID:       id,
		Category: category,
		Status:   task.StatusRequested,
		Lat:      lat,
		Lng:      lng,
	}
}

func TestDistanceKm(t *testing.T) {
	// Tokyo Station to Shinjuku Station, roughly 6.3 km.
	d := DistanceKm(35.6812, 139.7671, 35.6896, 139.7006)
	assert.InDelta(t, 6.1, d, 0.5)

	assert.Zero(t, DistanceKm(35.0, 139.0, 35.0, 139.0))
}

func TestRankSkillBonusBeatsProximityGap(t *testing.T) {
	// A matching skill is worth 10 points, so a skilled task a few km
	// further out still outranks a nearer unskilled one.
	worker := NewWorkerProfile("w1", ptr(35.0), ptr(139.0), []string{"plumbing"})

	// ~2 km north.
	near := openTask("near-electrical", "electrical", ptr(35.018), ptr(139.0))
	// ~5 km north.
	far := openTask("far-plumbing", "plumbing", ptr(35.045), ptr(139.0))

	ranked := Rank([]*task.Task{near, far}, worker)
	require.Len(t, ranked, 2)
	assert.Equal(t, "far-plumbing", ranked[0].Task.ID)
	assert.Equal(t, "near-electrical", ranked[1].Task.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	assert.InDelta(t, 5.0, ranked[0].DistanceKm, 0.2)
	assert.InDelta(t, 2.0, ranked[1].DistanceKm, 0.2)
}

func TestRankMissingCoordinatesDeprioritized(t *testing.T) {
	worker := NewWorkerProfile("w1", ptr(35.0), ptr(139.0), nil)

	located := openTask("located", "", ptr(35.01), ptr(139.0))
	unlocated := openTask("unlocated", "", nil, nil)

	ranked := Rank([]*task.Task{unlocated, located}, worker)
	require.Len(t, ranked, 2)
	assert.Equal(t, "located", ranked[0].Task.ID)
	assert.Equal(t, "unlocated", ranked[1].Task.ID)
	assert.Equal(t, float64(9999), ranked[1].DistanceKm)
}

func TestRankWorkerWithoutLocation(t *testing.T) {
	// No worker coordinates: every task gets the sentinel distance and
	// only skills separate them.
	worker := NewWorkerProfile("w1", nil, nil, []string{"cleaning"})

	a := openTask("a", "cleaning", ptr(35.0), ptr(139.0))
	b := openTask("b", "moving", ptr(35.0), ptr(139.0))

	ranked := Rank([]*task.Task{b, a}, worker)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Task.ID)
	assert.Equal(t, float64(9999), ranked[0].DistanceKm)
	assert.Equal(t, float64(-9999+10), ranked[0].Score)
	assert.Equal(t, float64(-9999), ranked[1].Score)
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	worker := NewWorkerProfile("w1", nil, nil, nil)

	tasks := []*task.Task{
		openTask("first", "", nil, nil),
		openTask("second", "", nil, nil),
		openTask("third", "", nil, nil),
	}

	ranked := Rank(tasks, worker)
	require.Len(t, ranked, 3)
	assert.Equal(t, "first", ranked[0].Task.ID)
	assert.Equal(t, "second", ranked[1].Task.ID)
	assert.Equal(t, "third", ranked[2].Task.ID)
}

func TestSkillMatchingIsCaseInsensitive(t *testing.T) {
	worker := NewWorkerProfile("w1", nil, nil, []string{" Plumbing ", "ELECTRICAL"})

	assert.True(t, worker.HasSkill("plumbing"))
	assert.True(t, worker.HasSkill("Electrical"))
	assert.False(t, worker.HasSkill("moving"))
	assert.False(t, worker.HasSkill(""))
}
