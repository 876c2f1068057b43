package grouping

import (
	"testing"

	"orthoset/testutil"
)

func TestNoOrchestrationImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OrchestrationImportForbidden, "grouping is part of the pure core")
}
