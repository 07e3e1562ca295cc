package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/control"
	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

func build(t *testing.T) (*control.Form, *Controller) {
	t.Helper()
	form := control.NewForm()
	c := Build(form, experiment.New(form, nil), config.DefaultConfig().Form, nil)
	t.Cleanup(c.Close)
	return form, c
}

func TestBuildCreatesDefaults(t *testing.T) {
	form, c := build(t)

	assert.Equal(t, 1, c.Engine().NumBlocks())
	assert.Equal(t, 1, form.BlockCount())

	doc := c.Engine().Read()
	tbb, _ := doc.Get("time_between_blocks")
	assert.Equal(t, float64(300), tbb)
	cams, _ := doc.Get("cameras")
	assert.Equal(t, "realtime", cams)
	name, _ := doc.Get("name")
	assert.Equal(t, "", name)

	block := c.Engine().Block(1).Read()
	bt, _ := block.Get("block_type")
	assert.Equal(t, "bugs", bt)
	mt, _ := block.Get("movement_type")
	assert.Equal(t, "circle", mt)
	drift, _ := block.Get("target_drift")
	assert.Equal(t, "", drift)
	size, _ := block.Get("is_default_bug_size")
	assert.Equal(t, true, size)
	assert.False(t, block.Has("bug_size"))
}

func TestCameraGroupIsShared(t *testing.T) {
	form, _ := build(t)

	group := form.CheckboxGroup(control.Top(field.CameraGroup))
	require.NotNil(t, group)
	assert.Len(t, group.Boxes(), 4)
	assert.False(t, form.Has(control.Top("cameras")))
}

func TestNumBlocksMaterializesAndRemoves(t *testing.T) {
	form, c := build(t)
	numBlocks := field.New("numBlocks", field.Numeric).Materialize(form, 0)

	numBlocks.SetValue(3)
	assert.Equal(t, 3, form.BlockCount())
	for i := 1; i <= 3; i++ {
		assert.True(t, form.Has(control.InBlock("blockTypeSelect", i)), "block %d", i)
		assert.True(t, form.Has(control.InBlock("media-url", i)), "block %d", i)
	}

	// Existing blocks keep their state when the count grows
	c.Engine().Block(2).Write(types.ValuesOf("bug_speed", 9))
	numBlocks.SetValue(4)
	speed, _ := c.Engine().Block(2).Read().Get("bug_speed")
	assert.Equal(t, float64(9), speed)

	numBlocks.SetValue(1)
	assert.Equal(t, 1, form.BlockCount())
	assert.False(t, form.Has(control.InBlock("bugSpeed", 2)))

	numBlocks.SetValue("nonsense")
	assert.Equal(t, 0, form.BlockCount())
}

func TestInvalidOptionFallsBackToFirst(t *testing.T) {
	catalog := config.DefaultConfig().Form
	catalog.Defaults.MovementType = "zigzag"

	form := control.NewForm()
	c := Build(form, experiment.New(form, nil), catalog, nil)
	defer c.Close()

	mt, _ := c.Engine().Block(1).Read().Get("movement_type")
	assert.Equal(t, catalog.MovementTypes[0], mt)
}

func TestCloseStopsReacting(t *testing.T) {
	form, c := build(t)
	c.Close()

	field.New("numBlocks", field.Numeric).Materialize(form, 0).SetValue(5)
	assert.Equal(t, 1, form.BlockCount())
	assert.Equal(t, 5, c.Engine().NumBlocks())
}

func TestHiddenFollowsMovementType(t *testing.T) {
	form, c := build(t)
	block := c.Engine().Block(1)

	assert.False(t, form.Hidden(control.InBlock("targetDriftSelect", 1)))
	assert.True(t, form.Hidden(control.InBlock("bugSize", 1)))

	block.Write(types.ValuesOf("movement_type", "random", "is_default_bug_size", false))
	assert.True(t, form.Hidden(control.InBlock("targetDriftSelect", 1)))
	assert.False(t, form.Hidden(control.InBlock("bugSize", 1)))
}

func TestNumBlocksIsCapped(t *testing.T) {
	form, c := build(t)
	numBlocks := field.New("numBlocks", field.Numeric).Materialize(form, 0)

	numBlocks.SetValue(1e7)
	assert.Equal(t, experiment.MaxBlocks, form.BlockCount())
	assert.True(t, form.Has(control.InBlock("blockTypeSelect", experiment.MaxBlocks)))
	assert.False(t, form.Has(control.InBlock("blockTypeSelect", experiment.MaxBlocks+1)))

	numBlocks.SetValue(2)
	assert.Equal(t, 2, form.BlockCount())
	assert.Equal(t, 2, c.Engine().NumBlocks())
}
