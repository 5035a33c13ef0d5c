package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	assert.InDelta(t, 0, Progress(1, 4), 0.001)
	assert.InDelta(t, 33.333, Progress(2, 4), 0.001)
	assert.InDelta(t, 66.667, Progress(3, 4), 0.001)
	assert.InDelta(t, 100, Progress(4, 4), 0.001)
	assert.InDelta(t, 100, Progress(1, 1), 0.001)
}

func TestNewView_FirstStep(t *testing.T) {
	v := NewView(TeamSteps(), 1)

	assert.False(t, v.ShowPrev)
	assert.True(t, v.ShowNext)
	assert.False(t, v.ShowSubmit)
	assert.Equal(t, "Step 1 of 4", v.Info)
	require.Len(t, v.Steps, 4)
	assert.Equal(t, StatusActive, v.Steps[0].Status)
	assert.Equal(t, "ti-user", v.Steps[0].Icon)
	assert.Equal(t, StatusPending, v.Steps[3].Status)
	assert.Equal(t, "personal", v.Active().ID)
}

func TestNewView_LastStep(t *testing.T) {
	v := NewView(TeamSteps(), 4)

	assert.True(t, v.ShowPrev)
	assert.False(t, v.ShowNext)
	assert.True(t, v.ShowSubmit)
	assert.Equal(t, "Step 4 of 4", v.Info)
	for _, s := range v.Steps[:3] {
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Equal(t, CompletedIcon, s.Icon)
	}
	assert.Equal(t, StatusActive, v.Steps[3].Status)
	assert.Equal(t, "ti-settings", v.Steps[3].Icon)
}

func TestController_View(t *testing.T) {
	c, _ := newTestController(t, filledTeam())
	require.NoError(t, c.Advance(Forward))

	v := c.View()

	assert.Equal(t, 2, v.Current)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, "contact", v.Active().ID)
	assert.True(t, v.ShowPrev)
	assert.True(t, v.ShowNext)
}

func TestView_ActiveOutOfRange(t *testing.T) {
	assert.Equal(t, StepView{}, View{Current: 3}.Active())
}
