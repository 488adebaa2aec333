package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Peak is a local maximum of a density grid.
type Peak struct {
	Index    int // flat voxel index
	Position r3.Vec
	Value    float64
}

// FindPeaks returns the voxels that exceed threshold and every one of their
// 26 neighbours, strongest first. Boundary voxels compare against the
// neighbours that exist.
func FindPeaks(grid *models.DensityGrid, threshold float64) ([]Peak, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	n := grid.N
	axis := coordinates.Axis(n, grid.VoxelSize)
	var peaks []Peak
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v := grid.At(x, y, z)
				if v <= threshold || !isLocalMax(grid, x, y, z, v) {
					continue
				}
				peaks = append(peaks, Peak{
					Index:    grid.Index(x, y, z),
					Position: r3.Vec{X: axis[x], Y: axis[y], Z: axis[z]},
					Value:    v,
				})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Value > peaks[j].Value })
	return peaks, nil
}

func isLocalMax(grid *models.DensityGrid, x, y, z int, v float64) bool {
	n := grid.N
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				i, j, k := x+dx, y+dy, z+dz
				if i < 0 || j < 0 || k < 0 || i >= n || j >= n || k >= n {
					continue
				}
				if grid.At(i, j, k) >= v {
					return false
				}
			}
		}
	}
	return true
}

// Match pairs a density peak with its nearest atom.
type Match struct {
	Peak     Peak
	Atom     int // index into the atom cloud
	Distance float64
}

// atomPoint is an atom position that satisfies kdtree.Comparable.
type atomPoint struct {
	r3.Vec
	index int
}

func (p atomPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(atomPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("diagnostics: illegal dimension")
	}
}

func (p atomPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p atomPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(atomPoint).Vec))
}

type atomPoints []atomPoint

func (p atomPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p atomPoints) Len() int                              { return len(p) }
func (p atomPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p atomPoints) Pivot(d kdtree.Dim) int {
	plane := atomPlane{atomPoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

// atomPlane sorts atoms along one dimension for partitioning.
type atomPlane struct {
	atomPoints
	kdtree.Dim
}

func (p atomPlane) Less(i, j int) bool {
	a, b := p.atomPoints[i], p.atomPoints[j]
	switch p.Dim {
	case 0:
		return a.X < b.X
	case 1:
		return a.Y < b.Y
	case 2:
		return a.Z < b.Z
	default:
		panic("diagnostics: illegal dimension")
	}
}

func (p atomPlane) Slice(start, end int) kdtree.SortSlicer {
	return atomPlane{atomPoints: p.atomPoints[start:end], Dim: p.Dim}
}

func (p atomPlane) Swap(i, j int) {
	p.atomPoints[i], p.atomPoints[j] = p.atomPoints[j], p.atomPoints[i]
}

// MatchPeaks finds the nearest atom of every peak. Atom positions must be
// in the frame of the grid, so centered atoms for grids built by the
// simulator.
func MatchPeaks(peaks []Peak, atoms *models.AtomCloud) ([]Match, error) {
	if atoms.Len() == 0 {
		return nil, fmt.Errorf("%w: no atoms to match against", models.ErrShapeMismatch)
	}
	points := make(atomPoints, atoms.Len())
	for i, p := range atoms.Positions {
		points[i] = atomPoint{Vec: p, index: i}
	}
	tree := kdtree.New(points, false)

	matches := make([]Match, len(peaks))
	for i, pk := range peaks {
		nearest, d2 := tree.Nearest(atomPoint{Vec: pk.Position})
		matches[i] = Match{Peak: pk, Atom: nearest.(atomPoint).index, Distance: math.Sqrt(d2)}
	}
	return matches, nil
}

// PeakReport summarizes peak-to-atom distances.
type PeakReport struct {
	Peaks        int     `yaml:"peaks"`
	MeanDistance float64 `yaml:"meanDistance"`
	MaxDistance  float64 `yaml:"maxDistance"`
	// AtomsFound counts atoms that are the nearest atom of some peak
	AtomsFound int `yaml:"atomsFound"`
}

// Summarize reduces matches to a PeakReport.
func Summarize(matches []Match) PeakReport {
	report := PeakReport{Peaks: len(matches)}
	if len(matches) == 0 {
		return report
	}
	dists := make([]float64, len(matches))
	seen := make(map[int]bool)
	for i, m := range matches {
		dists[i] = m.Distance
		report.MaxDistance = math.Max(report.MaxDistance, m.Distance)
		seen[m.Atom] = true
	}
	report.MeanDistance = stat.Mean(dists, nil)
	report.AtomsFound = len(seen)
	return report
}
