// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"strings"

	"github.com/finroc/finroc-go/element"
)

// ConfigNode names a common config-file entry prefix for a module or
// group's parameter ports, attached as an annotation to the group's
// framework element (spec.md §6: "an optional config-entry path
// ... relative to the nearest ConfigNode annotation"). Grounded on
// original_source/parameter/tConfigNode.{h,cpp}.
type ConfigNode struct {
	// Node is the entry prefix: absolute ("/…") or relative to this
	// node's own nearest ancestor ConfigNode.
	Node string

	element *element.Element
}

// OnAttach implements element.Annotation.
func (n *ConfigNode) OnAttach(e *element.Element) { n.element = e }

// GetConfigNode returns the nearest ConfigNode annotation's prefix
// above (and including) fe, with a relative prefix resolved against the
// ConfigNodes further up, or "" if none is attached.
func GetConfigNode(fe *element.Element) string {
	a := element.FindParentWithAnnotation(fe, &ConfigNode{})
	if a == nil {
		return ""
	}
	n := a.(*ConfigNode)
	if n.element == nil {
		return n.Node
	}
	return GetFullConfigEntry(n.element.PrimaryParent(), n.Node)
}

// GetFullConfigEntry resolves entry to an absolute config-file path:
// returned unchanged if already absolute, otherwise joined onto the
// nearest ConfigNode prefix above fe (spec.md §6).
func GetFullConfigEntry(fe *element.Element, entry string) string {
	if strings.HasPrefix(entry, "/") {
		return entry
	}
	prefix := GetConfigNode(fe)
	if prefix == "" {
		return "/" + entry
	}
	return strings.TrimSuffix(prefix, "/") + "/" + entry
}
