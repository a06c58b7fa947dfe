// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import "fmt"

// ListOf returns the implicit list type paired with elem, creating it
// on first use (spec.md §4.1: "Each registered standard or cheap-copy
// type implicitly defines a list type; asking for that list type
// creates it on first use").
func (r *Registry) ListOf(elem *Descriptor) (*Descriptor, error) {
	r.mu.RLock()
	if elem.ListUID != 0 {
		d := r.byUID[elem.ListUID]
		r.mu.RUnlock()
		return d, nil
	}
	r.mu.RUnlock()

	listName := fmt.Sprintf("List<%s>", elem.Name)
	elemUID := elem.UID
	listFactory := func(interThread bool) any {
		return newGenericList(elemUID)
	}

	d, err := r.GetOrRegister(listName, KindList, 0, 0, listFactory)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	d.ElementUID = elemUID
	elem.ListUID = d.UID
	r.mu.Unlock()
	return d, nil
}

// genericList is the default backing store for an implicit list type
// when no type-specific list implementation is registered: a thin,
// type-erased wrapper so the registry's factory signature stays uniform
// across element types. Concrete port list types (spec.md §3's port
// queues, for example) build their own typed slices instead of using
// this directly; it exists so CreateInstance(listUID, ...) always
// returns something usable for diagnostics and generic tooling.
type genericList struct {
	elementUID UID
	items      []any
}

func newGenericList(elementUID UID) *genericList {
	return &genericList{elementUID: elementUID}
}

// ElementUID returns the UID of the type this list carries.
func (l *genericList) ElementUID() UID { return l.elementUID }

// Append adds an element to the list.
func (l *genericList) Append(v any) { l.items = append(l.items, v) }

// Len returns the number of elements currently in the list.
func (l *genericList) Len() int { return len(l.items) }

// At returns the element at index i.
func (l *genericList) At(i int) any { return l.items[i] }
