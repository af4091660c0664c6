// Package base provides Base, a set of helpers for building objects from
// inside a module tree: resolving identifiers relative to the module,
// creating objects from descriptors or descriptor files, and filtering
// keyword arguments before they are forwarded.
package base
