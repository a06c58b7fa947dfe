// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/finroc/finroc-go/element"
)

// xmlNode is the on-disk shape of a config tree node: a branch if it
// has children, a leaf if it carries a Value attribute. Grounded on
// original_source/parameter/tConfigFile.h's wrapped XML document, with
// the branch/leaf distinction of tConfigFile's cXML_BRANCH_NAME /
// cXML_LEAF_NAME collapsed into a single element plus an optional
// value attribute.
type xmlNode struct {
	XMLName  xml.Name  `xml:"node"`
	Name     string    `xml:"name,attr"`
	Value    string    `xml:"value,attr,omitempty"`
	Children []xmlNode `xml:"node"`
}

func (n *xmlNode) child(name string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].Name == name {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) childOrCreate(name string) *xmlNode {
	if c := n.child(name); c != nil {
		return c
	}
	n.Children = append(n.Children, xmlNode{Name: name})
	return &n.Children[len(n.Children)-1]
}

// ConfigFile is a tree of named entries persisted as XML, attached as
// an annotation to the framework-element subtree it configures
// (spec.md §6: "A ConfigFile annotation is attached to a
// framework-element subtree"). Grounded on
// original_source/parameter/tConfigFile.{h,cpp}.
type ConfigFile struct {
	mu       sync.Mutex
	filename string
	root     xmlNode

	element *element.Element
}

// OnAttach implements element.Annotation.
func (c *ConfigFile) OnAttach(e *element.Element) { c.element = e }

// LoadConfigFile reads filename, returning an empty ConfigFile if it
// does not yet exist.
func LoadConfigFile(filename string) (*ConfigFile, error) {
	c := &ConfigFile{filename: filename, root: xmlNode{Name: "root"}}
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}
	if err := xml.Unmarshal(data, &c.root); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, err)
	}
	return c, nil
}

// FindConfigFile returns the nearest ConfigFile annotation above (and
// including) e, or nil (spec.md §6; grounded on tConfigFile::Find,
// implemented there as FindParentWithAnnotation(element, cTYPE)).
func FindConfigFile(e *element.Element) *ConfigFile {
	a := element.FindParentWithAnnotation(e, &ConfigFile{})
	if a == nil {
		return nil
	}
	return a.(*ConfigFile)
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// HasEntry reports whether path (slash-separated, e.g. "/a/b/c") names
// an existing leaf with a non-empty value.
func (c *ConfigFile) HasEntry(path string) bool {
	_, ok := c.GetEntry(path)
	return ok
}

// GetEntry returns the value stored at path.
func (c *ConfigFile) GetEntry(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := &c.root
	for _, seg := range splitPath(path) {
		cur = cur.child(seg)
		if cur == nil {
			return "", false
		}
	}
	if cur == &c.root {
		return "", false
	}
	return cur.Value, cur.Value != ""
}

// SetEntry stores value at path, creating intermediate branch nodes as
// needed.
func (c *ConfigFile) SetEntry(path, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := &c.root
	for _, seg := range splitPath(path) {
		cur = cur.childOrCreate(seg)
	}
	cur.Value = value
}

// SaveFile writes the configuration tree back to disk (spec.md §6:
// "Persisted state. XML documents for configuration only").
func (c *ConfigFile) SaveFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := xml.MarshalIndent(c.root, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling %s: %w", c.filename, err)
	}
	if err := os.WriteFile(c.filename, append([]byte(xml.Header), data...), 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", c.filename, err)
	}
	return nil
}

// Watch starts an fsnotify watch on the config file's directory and
// invokes onReload every time the file changes on disk, until ctx is
// done. Grounded on the pack's fsnotify usage pattern
// (github.com/fsnotify/fsnotify, as used for hot-reload elsewhere in
// the retrieval pack).
func (c *ConfigFile) Watch(ctx <-chan struct{}, onReload func(*ConfigFile, error)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	dir := c.filename
	if idx := strings.LastIndexByte(dir, '/'); idx >= 0 {
		dir = dir[:idx]
	} else {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("config: watching %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != c.filename || (ev.Op&(fsnotify.Write|fsnotify.Create) == 0) {
					continue
				}
				reloaded, loadErr := LoadConfigFile(c.filename)
				if loadErr == nil {
					c.mu.Lock()
					c.root = reloaded.root
					c.mu.Unlock()
				}
				onReload(c, loadErr)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				onReload(c, err)
			}
		}
	}()
	return func() { _ = w.Close() }, nil
}
