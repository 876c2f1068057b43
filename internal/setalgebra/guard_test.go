package setalgebra

import (
	"testing"

	"orthoset/testutil"
)

func TestNoOrchestrationImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OrchestrationImportForbidden, "setalgebra is part of the pure core")
}
