// Package testutil contains helper builders and stubs used across tests to
// reduce boilerplate when constructing signals, programmable backends and
// scripted agents. These helpers are not intended for production usage.
package testutil
