// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package environment provides the process-wide runtime environment:
// the framework-element tree's root, capacity limits on the number of
// ports and elements it will accept, and qualified-name uniqueness
// enforcement for elements flagged globally-unique-link. Grounded on
// default_main_wrapper.cpp's use of
// finroc::core::tRuntimeEnvironment::GetInstance()/Shutdown() and
// tCoreRegister<T>::SetMaximumNumberOfElements.
package environment
