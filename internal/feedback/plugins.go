package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/plugin"
)

// PluginRunner is the part of plugin.Executor used here.
type PluginRunner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// PluginCatalog is the part of plugin.Manager used here.
type PluginCatalog interface {
	WithCapability(capability string) []*plugin.Plugin
}

// Plugins speaks and notifies through external plugins.
type Plugins struct {
	catalog PluginCatalog
	runner  PluginRunner
}

// NewPlugins creates a Plugins feedback adapter.
func NewPlugins(catalog PluginCatalog, runner PluginRunner) *Plugins {
	return &Plugins{catalog: catalog, runner: runner}
}

// Speak implements Speaker using every plugin with the speak capability.
func (p *Plugins) Speak(ctx context.Context, text string) error {
	return p.run(ctx, plugin.CapabilitySpeak, &plugin.Request{
		Capability: plugin.CapabilitySpeak,
		Text:       text,
	})
}

// Notify implements Notifier using every plugin with the notify capability.
func (p *Plugins) Notify(ctx context.Context, e command.Event) error {
	return p.run(ctx, plugin.CapabilityNotify, &plugin.Request{
		Capability: plugin.CapabilityNotify,
		Action:     e.Action,
		Text:       e.Response,
		Urgent:     e.Urgent,
	})
}

func (p *Plugins) run(ctx context.Context, capability string, req *plugin.Request) error {
	var errs []error
	for _, pl := range p.catalog.WithCapability(capability) {
		resp, err := p.runner.Execute(ctx, pl, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("plugin %s: %s", pl.Manifest.Name, resp.Error))
		}
	}
	return errors.Join(errs...)
}
