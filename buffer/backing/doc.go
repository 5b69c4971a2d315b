// Package backing provides the physical-memory allocation strategies that
// back buffer planes.
//
// # Strategies
//
// A plane's capability flags select exactly one strategy, by precedence:
//
//	FB_VRAM  > TILER_{PAGE,8BIT,16BIT,32BIT} > CONTIG > SYSTEM (default)
//
// Classify is the only place that inspects the raw bits; everything else
// switches on the Strategy value.
//
//   - System: lazily-faulted shareable pages.
//   - Contig: pre-faulted pages drawn from a bounded carve-out.
//   - Tiler: 2D/1D placement in a tiled container. The tiler decides the
//     final stride and in-page offset, which override the caller's request.
//   - FBVRAM: non-resident placeholder for the framebuffer carve-out.
//
// # Regions
//
// Every allocation yields a reference-counted *Region. The allocation context
// that requested it holds the first reference; consumers take their own with
// Retain and drop them with Release. The strategy's free hook runs once, when
// the last reference goes away.
//
// # Allocation Contexts
//
// A Context is one caller session. Regions it still holds when it is
// destroyed are released in bulk, which is how a forced shutdown or a
// vanished client reclaims in-flight allocations.
package backing
