package handler

import (
	"fmt"
	"plugin"
)

// PluginSymbol is the function every handler plugin must export.
const PluginSymbol = "DownloadHandlers"

// Loader opens one plugin file and returns the registrations it exports.
type Loader interface {
	Load(path string) ([]Registration, error)
}

// PluginLoader loads Go plugins built with -buildmode=plugin.
type PluginLoader struct{}

// Load implements Loader.
func (PluginLoader) Load(path string) ([]Registration, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}

	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", PluginSymbol, err)
	}

	discover, ok := sym.(func() []Registration)
	if !ok {
		return nil, fmt.Errorf("symbol %s has type %T, want func() []handler.Registration", PluginSymbol, sym)
	}

	return discover(), nil
}
