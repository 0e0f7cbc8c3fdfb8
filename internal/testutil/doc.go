// Package testutil provides fluent builders and fixed fakes shared by tests
// across packages: manifest item construction and a static in-memory manifest
// index. Test-only; never imported by production code.
package testutil
