package so3grid

import (
	"math"
)

// HEALPix face layout: ring number and longitude offset of each of the 12 base faces.
// See Górski et al., "HEALPix: A Framework for High-Resolution Discretization and Fast Analysis
// of Data Distributed on the Sphere", ApJ 622 (2005).
var (
	jrll = [12]int{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// healpixPixels is the number of HEALPix pixels at the given nside.
func healpixPixels(nside int) int {
	return 12 * nside * nside
}

// pix2angNest returns the colatitude theta in [0, π] and longitude phi in [0, 2π) of the centre
// of pixel pix in the nested HEALPix scheme.
func pix2angNest(nside, pix int) (float64, float64) {
	npix := healpixPixels(nside)
	fact2 := 4 / float64(npix)
	fact1 := float64(2*nside) * fact2

	face := pix / (nside * nside)
	ipf := pix % (nside * nside)
	ix := compressBits(ipf)
	iy := compressBits(ipf >> 1)

	jr := jrll[face]*nside - ix - iy - 1
	var nr int
	var z float64
	switch {
	case jr < nside:
		nr = jr
		z = 1 - float64(nr*nr)*fact2
	case jr > 3*nside:
		nr = 4*nside - jr
		z = float64(nr*nr)*fact2 - 1
	default:
		nr = nside
		z = float64(2*nside-jr) * fact1
	}

	tmp := jpll[face]*nr + ix - iy
	if tmp < 0 {
		tmp += 8 * nr
	}
	var phi float64
	if nr == nside {
		phi = 0.75 * (math.Pi / 2) * float64(tmp) * fact1
	} else {
		phi = 0.5 * (math.Pi / 2) * float64(tmp) / float64(nr)
	}
	return math.Acos(math.Max(-1, math.Min(1, z))), phi
}

// compressBits keeps the even bits of v, packing them into the low bits of the result.
func compressBits(v int) int {
	out := 0
	for i := 0; v>>(2*i) != 0; i++ {
		out |= ((v >> (2 * i)) & 1) << i
	}
	return out
}
