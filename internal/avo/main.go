//go:build avogen
// +build avogen

package main

import (
	. "github.com/mmcloughlin/avo/build"
)

// main emits the store and prefetch primitives used by the scan driver.
func main() {
	Package("github.com/Akron/byteslice-go")
	ConstraintExpr("amd64")
	ConstraintExpr("!purego")

	genStoreNonTemporal()
	genStoreSfence()
	genPrefetchT0()

	Generate()
}
