// Package layout builds and maintains a headless experiment form: it creates
// the controls the field registry binds to, adds and removes block controls
// as num_blocks changes, and keeps each control's visibility in step with
// its relevance.
package layout

import (
	"go.uber.org/zap"

	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/control"
	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Controller reacts to change notifications of a form
type Controller struct {
	form     *control.Form
	engine   *experiment.Engine
	registry *schema.Registry
	catalog  config.FormConfig
	logger   *zap.SugaredLogger
	subs     []*control.Subscription
}

// Build creates the top-level controls on form, subscribes the controller to
// the form's change notifications and sets num_blocks to the catalog default,
// which materializes the initial blocks.
func Build(form *control.Form, engine *experiment.Engine, catalog config.FormConfig, logger *zap.SugaredLogger) *Controller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Controller{
		form:     form,
		engine:   engine,
		registry: engine.Registry(),
		catalog:  catalog,
		logger:   logger,
	}

	for _, e := range c.registry.Top {
		c.addControl(e, 0)
	}

	if d, ok := c.registry.TopLevel(types.KeyNumBlocks); ok {
		c.subs = append(c.subs, form.Subscribe(d.Binding, c.onNumBlocks))
	}
	c.subs = append(c.subs, form.SubscribeAll(c.onChange))

	if d, ok := c.registry.TopLevel(types.KeyNumBlocks); ok {
		d.Materialize(form, 0).SetValue(float64(catalog.Defaults.NumBlocks))
	}
	return c
}

// Close detaches the controller from the form
func (c *Controller) Close() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}

// Engine returns the engine the controller resolves blocks with
func (c *Controller) Engine() *experiment.Engine {
	return c.engine
}

func (c *Controller) onNumBlocks(control.Change) {
	n := c.engine.NumBlocks()
	for i := 1; i <= n; i++ {
		if !c.hasBlock(i) {
			c.addBlock(i)
		}
	}
	for i := c.form.BlockCount(); i > n; i-- {
		c.form.RemoveBlock(i)
		c.logger.Debugw("removed block controls", "block", i)
	}
}

func (c *Controller) onChange(change control.Change) {
	if change.Ref.Block > 0 && c.hasBlock(change.Ref.Block) {
		c.refreshVisibility(change.Ref.Block)
	}
}

func (c *Controller) hasBlock(index int) bool {
	d, ok := c.registry.BlockTypeField()
	if !ok {
		return c.form.BlockCount() >= index
	}
	return c.form.Has(d.Ref(index))
}

// blockEntries returns every field any block type can have, each name once
func (c *Controller) blockEntries() []schema.Entry {
	var out []schema.Entry
	seen := make(map[control.Ref]bool)
	add := func(entries []schema.Entry) {
		for _, e := range entries {
			if ref := e.Descriptor.Ref(1); !seen[ref] {
				seen[ref] = true
				out = append(out, e)
			}
		}
	}
	add(c.registry.Main)
	for _, t := range c.registry.BlockTypes() {
		add(c.registry.Types[t])
	}
	return out
}

func (c *Controller) addBlock(index int) {
	for _, e := range c.blockEntries() {
		c.addControl(e, index)
	}
	c.logger.Debugw("materialized block controls", "block", index)
	c.refreshVisibility(index)
}

// refreshVisibility hides every control of block index that is not part of
// the block's current type or whose conditions do not hold.
func (c *Controller) refreshVisibility(index int) {
	block := c.engine.Block(index)
	active := make(map[control.Ref]bool)
	for _, n := range block.Fields(true) {
		active[n.Field.Ref()] = true
	}
	for _, e := range c.blockEntries() {
		ref := e.Descriptor.Ref(index)
		c.form.SetHidden(ref, !active[ref])
	}
}

func (c *Controller) addControl(e schema.Entry, index int) {
	ref := e.Descriptor.Ref(index)
	if c.form.Has(ref) {
		return
	}
	initial := c.defaultFor(e.Name)

	switch e.Descriptor.Kind {
	case field.Boolean:
		c.form.AddToggle(ref, field.Truthy(initial))
	case field.MultiSelect:
		c.form.AddMultiSelect(ref, c.optionsFor(e.Name), field.StringList(initial)...)
	case field.CameraSet:
		group := control.Top(field.CameraGroup)
		if c.form.Has(group) {
			return
		}
		boxes := make([]control.Checkbox, 0, len(c.catalog.Cameras))
		for _, cam := range c.catalog.Cameras {
			boxes = append(boxes, control.Checkbox{Value: cam.Name, Checked: cam.Checked, Disabled: cam.Disabled})
		}
		c.form.AddCheckboxGroup(group, boxes)
	default:
		options := c.optionsFor(e.Name)
		if options == nil {
			c.form.AddInput(ref, field.Stringify(initial))
			return
		}
		value := field.Stringify(initial)
		if !contains(options, value) && len(options) > 0 {
			value = options[0]
		}
		c.form.AddSelect(ref, options, value)
	}
}

func (c *Controller) optionsFor(name string) []string {
	switch name {
	case types.KeyBlockType:
		return c.catalog.BlockTypes
	case "reward_type":
		return c.catalog.RewardTypes
	case "movement_type":
		return c.catalog.MovementTypes
	case "target_drift":
		return c.catalog.TargetDrifts
	case types.KeyBugTypes, types.KeyRewardBugs:
		return c.catalog.BugTypes
	}
	return nil
}

func (c *Controller) defaultFor(name string) any {
	d := c.catalog.Defaults
	switch name {
	case "time_between_blocks":
		return d.TimeBetweenBlocks
	case "extra_time_recording":
		return d.ExtraTimeRecording
	case types.KeyNumBlocks:
		return 0
	case "num_trials":
		return d.NumTrials
	case "trial_duration":
		return d.TrialDuration
	case "iti":
		return d.ITI
	case types.KeyBlockType:
		return d.BlockType
	case "reward_type":
		return d.RewardType
	case "movement_type":
		return d.MovementType
	case "bug_speed":
		return d.BugSpeed
	case "time_between_bugs":
		return d.TimeBetweenBugs
	case "bug_size":
		return d.BugSize
	case "bug_height":
		return d.BugHeight
	case "is_default_bug_size":
		return d.IsDefaultBugSize
	case "background_color":
		return d.BackgroundColor
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
