// Package galaxy holds the domain state evolved by the engine: baryon
// reservoirs, galaxies, the subhalos that own them, halos and the
// population-wide baryon ledger.
//
// Halos, subhalos and galaxies live in a [Forest] arena. Descendant links
// are stored as ids and resolved through the forest, never as owning
// pointers. A galaxy is owned by exactly one subhalo at a time.
package galaxy
