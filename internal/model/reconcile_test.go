package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDiff(t *testing.T) {
	t.Run(
		"added and removed",
		func(t *testing.T) {
			diff := ComputeDiff([]string{"A", "B", "C"}, []string{"B", "C", "D"})

			assert.Equal(t, []string{"A"}, diff.Added)
			assert.Equal(t, []string{"D"}, diff.Removed)
			assert.False(t, diff.Empty())
		})

	t.Run(
		"same sets",
		func(t *testing.T) {
			diff := ComputeDiff([]string{"A", "B"}, []string{"B", "A"})

			assert.Empty(t, diff.Added)
			assert.Empty(t, diff.Removed)
			assert.True(t, diff.Empty())
		})

	t.Run(
		"nothing local",
		func(t *testing.T) {
			diff := ComputeDiff([]string{"C", "A", "B"}, nil)

			assert.Equal(t, []string{"C", "A", "B"}, diff.Added)
			assert.Empty(t, diff.Removed)
		})

	t.Run(
		"nothing remote",
		func(t *testing.T) {
			diff := ComputeDiff(nil, []string{"A"})

			assert.Empty(t, diff.Added)
			assert.Equal(t, []string{"A"}, diff.Removed)
		})

	t.Run(
		"duplicate remote ids are added once",
		func(t *testing.T) {
			diff := ComputeDiff([]string{"A", "A", "B"}, []string{"B"})

			assert.Equal(t, []string{"A"}, diff.Added)
		})
}
