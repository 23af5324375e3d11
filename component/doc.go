// Package component defines the lifecycle contract shared by the
// infrastructure pieces of ormtest, most notably the test database
// component in database/testutil.
package component
