package scattering

import (
	"cryosim/internal/models"

	"gonum.org/v1/gonum/spatial/r2"
)

// Bound returns a copy of cloud whose weights are zero for every point that
// projects outside the box [-L/2, L/2) along x and y. Coordinates are kept
// so the result lines up with the input.
func Bound(cloud models.PointCloud, box r2.Vec) models.PointCloud {
	weights := make([]complex128, len(cloud.Weights))
	hx, hy := box.X/2, box.Y/2
	for i, p := range cloud.Coords {
		if p.X >= -hx && p.X < hx && p.Y >= -hy && p.Y < hy {
			weights[i] = cloud.Weights[i]
		}
	}
	return models.PointCloud{Weights: weights, Coords: cloud.Coords}
}
