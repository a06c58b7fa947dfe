// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config implements the configuration surface: a ConfigFile
// annotation backed by an XML document, ConfigNode annotations naming
// a subtree's common entry prefix, and ParameterInfo annotations on
// individual parameter ports that resolve their value from the
// command line, the nearest config file entry, or a finstruct default,
// in that order. ConfigFile additionally supports hot reload via
// fsnotify.
package config
