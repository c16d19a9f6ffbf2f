// Package grid rasterizes depth frames into a fixed-size binary occupancy
// grid and evaluates the structural heuristics read from it: collision
// detection, left/right emptiness balance and average depth.
//
// The Builder owns one grid buffer that is reset, not reallocated, at the
// start of every rasterization. A grid returned by Rasterize is only valid
// until the next call; use Clone to retain it or Process for an atomic
// rasterize-then-evaluate cycle.
//
// No SQL/database code is allowed in this package.
package grid
