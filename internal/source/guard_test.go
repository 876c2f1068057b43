package source

import (
	"testing"

	"orthoset/testutil"
)

func TestNoOrchestrationImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OrchestrationImportForbidden, "source is part of the pure core")
}
