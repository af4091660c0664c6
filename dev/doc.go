// Package dev holds development helpers: the process debug switch and the
// self-test report printed by the --test command.
package dev
