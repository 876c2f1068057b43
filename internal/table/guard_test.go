package table

import (
	"testing"

	"orthoset/testutil"
)

func TestNoOrchestrationImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OrchestrationImportForbidden, "table is part of the pure core")
}
