// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package element

import (
	"fmt"
	"reflect"
)

// Annotation is attached to a framework element and keyed by its
// concrete Go type: an element may carry at most one annotation of a
// given type (spec.md §4.3: "adding two annotations of the same type
// is forbidden"). Grounded on
// original_source/tFinrocAnnotation.{h,cpp}.
type Annotation interface {
	// OnAttach is called once, synchronously, when the annotation is
	// added to an element via Element.AddAnnotation.
	OnAttach(e *Element)
}

// AddAnnotation attaches ann to e under RegistryLock. Returns an error
// if e already carries an annotation of the same concrete type.
func (e *Element) AddAnnotation(ann Annotation) error {
	t := reflect.TypeOf(ann)

	RegistryLock.Lock()
	defer RegistryLock.Unlock()

	if e.annotations == nil {
		e.annotations = make(map[reflect.Type]Annotation)
	}
	if _, exists := e.annotations[t]; exists {
		return fmt.Errorf("element: %s already carries an annotation of type %s", e.primaryName, t)
	}
	e.annotations[t] = ann
	ann.OnAttach(e)
	return nil
}

// Annotation returns the annotation of the same concrete type as
// sample attached to e, or nil.
func (e *Element) Annotation(sample Annotation) Annotation {
	if e.annotations == nil {
		return nil
	}
	return e.annotations[reflect.TypeOf(sample)]
}

// FindParentWithAnnotation walks from e's primary parent towards the
// root and returns the first annotation matching sample's type,
// searching e itself first. Used by the scheduler to locate an
// element's nearest execution-control annotation (spec.md §4.6).
func FindParentWithAnnotation(e *Element, sample Annotation) Annotation {
	t := reflect.TypeOf(sample)
	for cur := e; cur != nil; cur = cur.primaryParent {
		if cur.annotations != nil {
			if a, ok := cur.annotations[t]; ok {
				return a
			}
		}
	}
	return nil
}
