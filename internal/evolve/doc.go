// Package evolve drives a merger tree forest through its snapshots.
//
// Each snapshot interval runs, halo by halo, gas accretion, subhalo and
// galaxy mergers, galaxy seeding, quiescent evolution, disk instabilities
// and starbursts. The population is then summed into the baryon ledger
// and every galaxy is handed to the descendant of its subhalo.
//
// Halos are independent during evolution. Transfers are partitioned so
// that no two workers ever target the same descendant halo.
package evolve
