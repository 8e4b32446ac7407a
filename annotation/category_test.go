package annotation_test

import (
	"testing"

	. "github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColors(t *testing.T) {
	assert.Equal(t, UndefinedColor, FillColor(UndefinedID))
	assert.Equal(t, PromptColor, FillColor(PromptID))
	assert.Equal(t, DefaultTextColor, TextColor(UndefinedID))
	assert.Equal(t, FillColor(0), FillColor(20))
	assert.Equal(t, FillColor(3), BorderColor(3))
	assert.NotEqual(t, FillColor(0), FillColor(1))
	assert.Equal(t, FillColor(17), FillColor(-3))
	assert.Equal(t, "12", Category{ID: 12}.Label())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry([]model.CategoryInfo{
		{ID: 2, Name: "Acropora", SuperCategory: "Acropora"},
		{ID: 0, Name: "Porites", SuperCategory: "Porites"},
	})

	c, err := reg.Add("Favia")
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	_, err = reg.Add("Favia")
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	_, err = reg.AddWithID("Montipora", 2)
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	before := FillColor(1)
	require.NoError(t, reg.Rename(1, "Dead coral"))
	assert.Equal(t, "Dead coral", reg.Name(1))
	assert.Equal(t, "Dead coral", reg.SuperCategory(1))
	assert.Equal(t, before, Category{ID: 1}.FillColor())

	assert.ErrorIs(t, reg.Rename(7, "x"), ErrUnknownCategory)

	snap := reg.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{snap[0].ID, snap[1].ID, snap[2].ID})

	require.NoError(t, reg.Remove(0))
	assert.False(t, reg.Contains(0))
	c, err = reg.Add("Porites")
	require.NoError(t, err)
	assert.Equal(t, 0, c.ID)
	assert.Len(t, reg.Categories(), 3)
}
