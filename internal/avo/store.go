//go:build avogen
// +build avogen

package main

import (
	. "github.com/mmcloughlin/avo/build"
	op "github.com/mmcloughlin/avo/operand"
	"github.com/mmcloughlin/avo/reg"
)

// This file generates the bitmap write primitives. A completed bitmap word is
// never read back by the scan, so it is written with MOVNTI, which bypasses
// the cache hierarchy; SFENCE orders those writes before the scan returns.
// PREFETCHT0 pulls the next cache lines of the most significant byte plane.

func genStoreNonTemporal() {
	TEXT("storeNonTemporal", NOSPLIT, "func(addr *uint64, v uint64)")
	Doc("storeNonTemporal writes v to *addr with a non-temporal hint (MOVNTI).")

	addr := Load(Param("addr"), GP64())
	v := Load(Param("v"), GP64())
	MOVNTIQ(v, op.Mem{Base: addr.(reg.GPVirtual)})
	RET()
}

func genStoreSfence() {
	TEXT("storeSfence", NOSPLIT, "func()")
	Doc("storeSfence orders all preceding non-temporal stores.")
	SFENCE()
	RET()
}

func genPrefetchT0() {
	TEXT("prefetchT0", NOSPLIT, "func(addr *byte)")
	Doc("prefetchT0 hints the cache line holding *addr into all cache levels.")

	addr := Load(Param("addr"), GP64())
	PREFETCHT0(op.Mem{Base: addr.(reg.GPVirtual)})
	RET()
}
