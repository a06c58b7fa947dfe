// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"github.com/finroc/finroc-go/element"
)

// ParameterInfo is attached to a parameter port. It resolves the
// port's value from, in order, the command line, the nearest config
// file entry, or a finstruct-supplied default literal — first
// non-empty source wins (spec.md §6: "Load order per parameter:
// command-line → config-entry → finstruct-default; first non-empty
// wins"). Grounded on
// original_source/parameter/tParameterInfo.cpp's LoadValue.
type ParameterInfo struct {
	ConfigEntry       string
	CommandLineOption string
	FinstructDefault  string

	// entrySetFromFinstruct records whether ConfigEntry was assigned by
	// the finstruct tooling rather than hand-authored, mirroring
	// tParameterInfo's serialization of the same flag so round-tripped
	// config stays distinguishable.
	entrySetFromFinstruct bool

	// get serializes the port's current value to a string; set parses a
	// string and publishes it to the port. Both are supplied by the
	// concrete Port[T] this annotation is attached to, since
	// ParameterInfo itself is not generic over the port's value type.
	get func() string
	set func(string) error

	element *element.Element
}

// NewParameterInfo creates a ParameterInfo with accessors for reading
// and writing the parameter port's current value as a string.
func NewParameterInfo(configEntry, commandLineOption, finstructDefault string, get func() string, set func(string) error) *ParameterInfo {
	return &ParameterInfo{
		ConfigEntry:       configEntry,
		CommandLineOption: commandLineOption,
		FinstructDefault:  finstructDefault,
		get:               get,
		set:               set,
	}
}

// OnAttach implements element.Annotation.
func (p *ParameterInfo) OnAttach(e *element.Element) { p.element = e }

// SetConfigEntry updates the config-entry path, optionally marking it
// as finstruct-assigned, and reloads the value if it actually changed
// (spec.md §6; grounded on tParameterInfo::SetConfigEntry).
func (p *ParameterInfo) SetConfigEntry(entry string, finstructSet bool) error {
	if p.ConfigEntry == entry {
		return nil
	}
	p.ConfigEntry = entry
	p.entrySetFromFinstruct = finstructSet
	return p.LoadValue(nil)
}

// LoadValue resolves and applies the parameter's value following the
// command-line → config-entry → finstruct-default precedence. args
// maps a command-line option name to its supplied value; nil or a
// missing/empty entry falls through to the next source.
func (p *ParameterInfo) LoadValue(args map[string]string) error {
	if p.CommandLineOption != "" {
		if v, ok := args[p.CommandLineOption]; ok && v != "" {
			return p.set(v)
		}
	}

	if p.ConfigEntry != "" && p.element != nil {
		if cf := FindConfigFile(p.element); cf != nil {
			full := GetFullConfigEntry(p.element, p.ConfigEntry)
			if v, ok := cf.GetEntry(full); ok {
				return p.set(v)
			}
		}
	}

	if p.FinstructDefault != "" {
		return p.set(p.FinstructDefault)
	}
	return nil
}

// SaveValue writes the parameter's current value back into its
// config-entry slot of the nearest ConfigFile, if both are set
// (spec.md §6; grounded on tParameterInfo::SaveValue).
func (p *ParameterInfo) SaveValue() {
	if p.element == nil || p.ConfigEntry == "" {
		return
	}
	cf := FindConfigFile(p.element)
	if cf == nil {
		return
	}
	full := GetFullConfigEntry(p.element, p.ConfigEntry)
	cf.SetEntry(full, p.get())
}

// findParameterInfo returns the ParameterInfo annotation attached
// directly to e, or nil.
func findParameterInfo(e *element.Element) *ParameterInfo {
	a := e.Annotation(&ParameterInfo{})
	if a == nil {
		return nil
	}
	return a.(*ParameterInfo)
}

// LoadParameterValues walks the subtree rooted at root and loads every
// descendant's ParameterInfo in turn (spec.md §6; grounded on
// tConfigFile::LoadParameterValues, which runs a tree filter over the
// subtree the config file annotates).
func LoadParameterValues(root *element.Element, args map[string]string) error {
	var firstErr error
	var walk func(e *element.Element)
	walk = func(e *element.Element) {
		if pi := findParameterInfo(e); pi != nil {
			if err := pi.LoadValue(args); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		for _, c := range e.Children() {
			walk(c)
		}
	}
	walk(root)
	return firstErr
}
