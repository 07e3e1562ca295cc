package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefID(t *testing.T) {
	tests := []struct {
		name string
		ref  Ref
		want string
	}{
		{"top level", Top("numBlocks"), "numBlocks"},
		{"block scoped", InBlock("bugSpeed", 3), "bugSpeed3"},
		{"dashed binding", InBlock("media-url", 12), "media-url12"},
		{"zero index is top level", Ref{Name: "iti"}, "iti"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.ID())
		})
	}
}

func TestFormMissingControlsAreNil(t *testing.T) {
	f := NewForm()
	assert.Nil(t, f.Input(Top("nope")))
	assert.Nil(t, f.Toggle(Top("nope")))
	assert.Nil(t, f.MultiSelect(Top("nope")))
	assert.Nil(t, f.CheckboxGroup(Top("nope")))

	// Shape mismatch is reported the same way as absence
	f.AddToggle(Top("flag"), true)
	assert.Nil(t, f.Input(Top("flag")))
	assert.NotNil(t, f.Toggle(Top("flag")))
}

func TestFormSelectRejectsUnknownValue(t *testing.T) {
	f := NewForm()
	f.AddSelect(InBlock("blockTypeSelect", 1), []string{"bugs", "media"}, "bugs")

	in := f.Input(InBlock("blockTypeSelect", 1))
	require.NotNil(t, in)
	assert.Equal(t, "bugs", in.Value())

	in.SetValue("media")
	assert.Equal(t, "media", in.Value())

	in.SetValue("video")
	assert.Equal(t, "", in.Value())
}

func TestFormMultiSelect(t *testing.T) {
	f := NewForm()
	ref := InBlock("bugTypeSelect", 1)
	f.AddMultiSelect(ref, []string{"cockroach", "worm", "red_beetle"}, "worm")

	ms := f.MultiSelect(ref)
	require.NotNil(t, ms)
	assert.Equal(t, []string{"worm"}, ms.Selected())
	assert.Equal(t, "worm", f.Summary(ref))

	assert.True(t, ms.Select("cockroach"))
	assert.False(t, ms.Select("spider"))
	assert.Equal(t, []string{"cockroach", "worm"}, ms.Selected())

	// Summary is only rebuilt on refresh
	assert.Equal(t, "worm", f.Summary(ref))
	ms.Refresh()
	assert.Equal(t, "cockroach, worm", f.Summary(ref))
}

func TestFormCheckboxGroup(t *testing.T) {
	f := NewForm()
	ref := Top("cams-checkboxes")
	f.AddCheckboxGroup(ref, []Checkbox{
		{Value: "top"},
		{Value: "side", Disabled: true},
	})

	g := f.CheckboxGroup(ref)
	require.NotNil(t, g)
	g.SetChecked("side", true)
	g.SetChecked("missing", true)

	boxes := g.Boxes()
	require.Len(t, boxes, 2)
	assert.False(t, boxes[0].Checked)
	assert.True(t, boxes[1].Checked)
	assert.True(t, boxes[1].Disabled)
}

func TestFormRemoveBlock(t *testing.T) {
	f := NewForm()
	f.AddInput(Top("numBlocks"), "2")
	f.AddInput(InBlock("experimentITI", 1), "10")
	f.AddInput(InBlock("experimentITI", 2), "10")
	f.AddToggle(InBlock("isDefaultBugSize", 2), true)
	f.SetHidden(InBlock("experimentITI", 2), true)

	assert.Equal(t, 2, f.BlockCount())
	f.RemoveBlock(2)
	assert.Equal(t, 1, f.BlockCount())
	assert.False(t, f.Has(InBlock("isDefaultBugSize", 2)))
	assert.False(t, f.Hidden(InBlock("experimentITI", 2)))
	assert.True(t, f.Has(Top("numBlocks")))

	assert.Equal(t, []Ref{Top("numBlocks"), InBlock("experimentITI", 1)}, f.Refs())
}

func TestFormChangedDeliversSynchronously(t *testing.T) {
	f := NewForm()
	f.AddInput(Top("numBlocks"), "1")
	f.AddInput(Top("mirror"), "")

	var order []string
	f.Subscribe("numBlocks", func(c Change) {
		order = append(order, "numBlocks:"+c.Ref.ID())
		// Nested writes are delivered before the outer call returns
		f.Input(Top("mirror")).SetValue(f.Input(Top("numBlocks")).Value())
		f.Changed(Top("mirror"))
	})
	all := f.SubscribeAll(func(c Change) {
		order = append(order, "all:"+c.Ref.ID())
	})
	f.Subscribe("other", func(c Change) {
		order = append(order, "other")
	})

	f.Input(Top("numBlocks")).SetValue("3")
	f.Changed(Top("numBlocks"))

	assert.Equal(t, "3", f.Input(Top("mirror")).Value())
	assert.Equal(t, []string{"numBlocks:numBlocks", "all:mirror", "all:numBlocks"}, order)

	all.Unsubscribe()
	order = nil
	f.Changed(Top("numBlocks"))
	assert.Equal(t, []string{"numBlocks:numBlocks"}, order)
}
