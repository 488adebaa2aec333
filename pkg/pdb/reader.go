// Package pdb reads atomic coordinates from Protein Data Bank files.
//
// Only the fixed-column ATOM and HETATM records of the first model are
// used. Alternate locations other than the first are skipped.
package pdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cryosim/internal/models"
	"cryosim/pkg/logging"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoAtoms is returned when a file holds no usable atom records.
var ErrNoAtoms = errors.New("pdb: no atoms")

type options struct {
	skipHydrogens bool
	skipHetatm    bool
}

// Option configures Read.
type Option func(*options)

// SkipHydrogens drops hydrogen and deuterium atoms.
func SkipHydrogens() Option { return func(o *options) { o.skipHydrogens = true } }

// SkipHetatm drops HETATM records (ligands, waters, ions).
func SkipHetatm() Option { return func(o *options) { o.skipHetatm = true } }

// ReadFile opens path and calls Read.
func ReadFile(path string, opts ...Option) (*models.AtomCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdb: error opening %s: %w", path, err)
	}
	defer f.Close()

	cloud, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cloud, nil
}

// Read parses PDB records from r.
func Read(r io.Reader, opts ...Option) (*models.AtomCloud, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		positions []r3.Vec
		elements  []int
		altLoc    = map[string]byte{}
		lineNo    int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := strings.TrimSpace(field(line, 0, 6))
		if record == "ENDMDL" {
			break
		}
		if record != "ATOM" && record != "HETATM" {
			continue
		}
		if record == "HETATM" && o.skipHetatm {
			continue
		}

		// Keep the first alternate location seen for each atom
		if alt := field(line, 16, 17); alt != "" && alt != " " {
			key := field(line, 12, 16) + field(line, 17, 27)
			if first, ok := altLoc[key]; ok && first != alt[0] {
				continue
			}
			altLoc[key] = alt[0]
		}

		pos, err := parsePosition(line)
		if err != nil {
			return nil, fmt.Errorf("pdb: line %d: %w", lineNo, err)
		}
		z, err := parseElement(line)
		if err != nil {
			return nil, fmt.Errorf("pdb: line %d: %w", lineNo, err)
		}
		if z == 1 && o.skipHydrogens {
			continue
		}
		positions = append(positions, pos)
		elements = append(elements, z)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pdb: error reading: %w", err)
	}
	if len(positions) == 0 {
		return nil, ErrNoAtoms
	}

	logging.Logger().Debug("pdb: read atoms", "count", len(positions))
	return models.NewAtomCloud(positions, elements)
}

// field returns line[start:end], clipped to the line length.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

func parsePosition(line string) (r3.Vec, error) {
	var xyz [3]float64
	for i := range xyz {
		s := strings.TrimSpace(field(line, 30+8*i, 38+8*i))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("bad coordinate %q", s)
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// parseElement uses the element column and falls back to the atom name for
// files that leave it blank.
func parseElement(line string) (int, error) {
	sym := strings.TrimSpace(field(line, 76, 78))
	if sym == "" {
		name := strings.TrimSpace(field(line, 12, 16))
		sym = strings.TrimLeft(name, "0123456789")
		if len(sym) > 1 {
			// Two-letter symbols need the element column
			sym = sym[:1]
		}
	}
	z, ok := AtomicNumber(sym)
	if !ok {
		return 0, fmt.Errorf("unknown element %q", sym)
	}
	return z, nil
}
