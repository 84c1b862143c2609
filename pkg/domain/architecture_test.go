package domain

import (
	"testing"

	"hostelcore/testutil"
)

// TestDomainImportsStdlibOnly keeps the domain layer free of infrastructure.
func TestDomainImportsStdlibOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.NonStdlib, "domain must only import the standard library")
}
