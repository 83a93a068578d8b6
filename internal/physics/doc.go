// Package physics couples galaxies to the numeric integrator.
//
// An [Engine] advances one galaxy over one snapshot interval. It marshals
// the galaxy and its host subhalo into a flat state vector through an
// installed [Equations] set, integrates that vector with an
// [integrators.ODESolver] and writes the result back, validating the
// physical consistency of the new state:
//
//	eng := physics.NewEngine(physics.NewBasic(fb, sf, rec, gcp), cooling, 0.05)
//	if err := eng.EvolveGalaxy(subhalo, gal, z, dt); err != nil {
//	    return err
//	}
//
// # Basic model
//
// [Basic] is the 17-component model: stellar, cold gas, halo cooling gas,
// hot gas and ejected gas masses, their metal masses, the stellar mass and
// metals formed during the step, and the angular momenta of the five mass
// reservoirs.
package physics
