// Package session wraps the shared Redis store behind the small set of
// primitives the auth core needs: session records with TTL, atomic
// counters, expiring flags, capped lists, and prefix scans.
//
// Every key the core writes lives behind one of the prefixes defined here,
// so components can never collide. Expiry is always enforced by Redis TTLs,
// never by comparing timestamps in application code.
package session
