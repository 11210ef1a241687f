package posesearch

import (
	"github.com/golang/geo/r3"

	"go.viam.com/so3pose/utils"
)

// NewLattice returns the ny×nx image-plane sampling points in row-major order (y outer, x
// inner). Each axis is linspace(-1, 1, n) with the endpoint excluded, so the origin is a lattice
// point for even n, and z is 0.
func NewLattice(ny, nx int) []r3.Vector {
	if ny <= 0 || nx <= 0 {
		return nil
	}
	mesh := utils.Meshgrid(utils.Linspace(-1, 1, ny, false), utils.Linspace(-1, 1, nx, false))
	lattice := make([]r3.Vector, ny*nx)
	for i := range lattice {
		row := mesh.RawRowView(i)
		lattice[i] = r3.Vector{X: row[1], Y: row[0]}
	}
	return lattice
}
