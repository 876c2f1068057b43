package normalize

import (
	"testing"

	"orthoset/testutil"
)

func TestNoOrchestrationImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OrchestrationImportForbidden, "normalize is part of the pure core")
}
