// Package formfactor provides five-Gaussian electron scattering factors.
//
// An element's scattering factor is parameterized as
//
//	f(q) = sum_k a_k exp(-b_k (q/2)^2)
//
// with b in square Angstroms. The built-in values are the elastic
// parameterization of Peng et al. (Acta Cryst. A52, 1996) for H through Ba,
// which covers every element of biological macromolecules and their bound
// ions. Other elements can be supplied with a YAML table.
package formfactor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownElement is returned when an element has no entry in the table.
var ErrUnknownElement = errors.New("formfactor: unknown element")

// Coefficients holds the amplitudes A and widths B of one element.
type Coefficients struct {
	A [5]float64
	B [5]float64
}

// Entry is the serialized form of one element.
type Entry struct {
	Z      int        `yaml:"z"`
	Symbol string     `yaml:"symbol"`
	A      [5]float64 `yaml:"a,flow"`
	B      [5]float64 `yaml:"b,flow"`
}

// Table maps atomic numbers to scattering coefficients. A Table is read-only
// once built and safe for concurrent use.
type Table struct {
	byZ     map[int]Entry
	symbols map[string]int
}

// tableFile is the on-disk layout.
type tableFile struct {
	Elements []Entry `yaml:"elements"`
}

// NewTable builds a table from entries. Later entries replace earlier ones
// with the same atomic number.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{byZ: make(map[int]Entry, len(entries)), symbols: make(map[string]int, len(entries))}
	for _, e := range entries {
		if err := t.add(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(e Entry) error {
	if e.Z <= 0 {
		return fmt.Errorf("formfactor: invalid atomic number %d", e.Z)
	}
	for k, b := range e.B {
		if !(b > 0) {
			return fmt.Errorf("formfactor: element %d has non-positive width b[%d]=%g", e.Z, k, b)
		}
	}
	if old, ok := t.byZ[e.Z]; ok {
		delete(t.symbols, strings.ToUpper(old.Symbol))
	}
	t.byZ[e.Z] = e
	if e.Symbol != "" {
		t.symbols[strings.ToUpper(e.Symbol)] = e.Z
	}
	return nil
}

// Lookup returns the coefficients of atomic number z.
func (t *Table) Lookup(z int) (Coefficients, error) {
	e, ok := t.byZ[z]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: atomic number %d", ErrUnknownElement, z)
	}
	return Coefficients{A: e.A, B: e.B}, nil
}

// AtomicNumber resolves an element symbol, case-insensitively.
func (t *Table) AtomicNumber(symbol string) (int, error) {
	z, ok := t.symbols[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return 0, fmt.Errorf("%w: symbol %q", ErrUnknownElement, symbol)
	}
	return z, nil
}

// Entries returns the table contents ordered by atomic number.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.byZ))
	for _, e := range t.byZ {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// Merge returns a new table holding t's entries overridden by other's.
func (t *Table) Merge(other *Table) *Table {
	out := &Table{byZ: make(map[int]Entry), symbols: make(map[string]int)}
	for _, e := range t.Entries() {
		out.add(e) // entries were validated when t was built
	}
	for _, e := range other.Entries() {
		out.add(e)
	}
	return out
}

// MarshalYAML encodes the table as an ordered element list.
func (t *Table) MarshalYAML() (interface{}, error) {
	return tableFile{Elements: t.Entries()}, nil
}

// UnmarshalYAML decodes an element list.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	var f tableFile
	if err := node.Decode(&f); err != nil {
		return err
	}
	nt, err := NewTable(f.Elements)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}

// Decode reads a YAML table from r.
func Decode(r io.Reader) (*Table, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("formfactor: error parsing table: %w", err)
	}
	return &t, nil
}

// LoadYAML reads a table from path and layers it over the built-in table,
// so a file only needs the elements it adds or changes.
func LoadYAML(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("formfactor: error opening table: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return Default().Merge(t), nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in table. It is built on first use and shared by
// every caller afterwards.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := NewTable(pengElastic)
		if err != nil {
			panic(err) // built-in data is static
		}
		defaultTable = t
	})
	return defaultTable
}

// pengElastic lists the five-Gaussian elastic parameters fitted over
// 0 < s < 6/Angstrom for H through Ba.
var pengElastic = []Entry{
	{Z: 1, Symbol: "H",
		A: [5]float64{0.0088, 0.0449, 0.1481, 0.2356, 0.0914},
		B: [5]float64{0.1152, 1.0867, 4.9755, 16.5591, 43.2743}},
	{Z: 2, Symbol: "He",
		A: [5]float64{0.0084, 0.0443, 0.1314, 0.1671, 0.0666},
		B: [5]float64{0.0596, 0.5360, 2.4274, 7.7852, 20.3126}},
	{Z: 3, Symbol: "Li",
		A: [5]float64{0.0478, 0.2048, 0.5253, 1.5225, 0.9853},
		B: [5]float64{0.2258, 2.1032, 12.9349, 50.7501, 136.6280}},
	{Z: 4, Symbol: "Be",
		A: [5]float64{0.0423, 0.1874, 0.6019, 1.4311, 0.7891},
		B: [5]float64{0.1445, 1.4180, 8.1165, 27.9705, 74.8684}},
	{Z: 5, Symbol: "B",
		A: [5]float64{0.0436, 0.1898, 0.6788, 1.3273, 0.5544},
		B: [5]float64{0.1207, 1.1595, 6.2474, 21.0460, 59.3619}},
	{Z: 6, Symbol: "C",
		A: [5]float64{0.0489, 0.2091, 0.7537, 1.1420, 0.3555},
		B: [5]float64{0.1140, 1.0825, 5.4281, 17.8811, 51.1341}},
	{Z: 7, Symbol: "N",
		A: [5]float64{0.0267, 0.1329, 0.5301, 1.1020, 0.4215},
		B: [5]float64{0.0541, 0.5165, 2.8207, 10.6297, 34.3764}},
	{Z: 8, Symbol: "O",
		A: [5]float64{0.0365, 0.1729, 0.5805, 0.8814, 0.3121},
		B: [5]float64{0.0652, 0.6184, 2.9449, 9.6298, 28.2194}},
	{Z: 9, Symbol: "F",
		A: [5]float64{0.0382, 0.1822, 0.5972, 0.7707, 0.2130},
		B: [5]float64{0.0613, 0.5753, 2.6858, 8.8214, 25.6668}},
	{Z: 10, Symbol: "Ne",
		A: [5]float64{0.0380, 0.1785, 0.5494, 0.6942, 0.1918},
		B: [5]float64{0.0554, 0.5087, 2.2639, 7.3316, 21.6912}},
	{Z: 11, Symbol: "Na",
		A: [5]float64{0.1260, 0.6442, 0.8893, 1.8197, 1.2988},
		B: [5]float64{0.1684, 1.7150, 8.8386, 50.8265, 147.2073}},
	{Z: 12, Symbol: "Mg",
		A: [5]float64{0.1130, 0.5575, 0.9046, 2.1580, 1.4735},
		B: [5]float64{0.1356, 1.3579, 6.9255, 32.3165, 92.1138}},
	{Z: 13, Symbol: "Al",
		A: [5]float64{0.1165, 0.5504, 1.0179, 2.6295, 1.5711},
		B: [5]float64{0.1295, 1.2619, 6.8242, 28.4577, 88.4750}},
	{Z: 14, Symbol: "Si",
		A: [5]float64{0.0567, 0.3365, 0.8104, 2.4960, 2.1186},
		B: [5]float64{0.0582, 0.6155, 3.2522, 16.7929, 57.6767}},
	{Z: 15, Symbol: "P",
		A: [5]float64{0.1005, 0.4615, 1.0663, 2.5854, 1.2725},
		B: [5]float64{0.0977, 0.9084, 4.9654, 18.5471, 54.3648}},
	{Z: 16, Symbol: "S",
		A: [5]float64{0.0915, 0.4312, 1.0847, 2.4671, 1.0852},
		B: [5]float64{0.0838, 0.7788, 4.3462, 15.5846, 44.6365}},
	{Z: 17, Symbol: "Cl",
		A: [5]float64{0.0799, 0.3891, 1.0037, 2.3332, 1.0507},
		B: [5]float64{0.0694, 0.6443, 3.5351, 12.5058, 35.8633}},
	{Z: 18, Symbol: "Ar",
		A: [5]float64{0.1044, 0.4551, 1.4232, 2.1533, 0.4459},
		B: [5]float64{0.0853, 0.7701, 4.4684, 14.5864, 41.2474}},
	{Z: 19, Symbol: "K",
		A: [5]float64{0.2149, 0.8703, 2.4999, 2.3591, 3.0318},
		B: [5]float64{0.1660, 1.6906, 8.7447, 46.7825, 165.6923}},
	{Z: 20, Symbol: "Ca",
		A: [5]float64{0.2355, 0.9916, 2.3959, 3.7252, 2.5647},
		B: [5]float64{0.1742, 1.8329, 8.8407, 47.4583, 134.9613}},
	{Z: 21, Symbol: "Sc",
		A: [5]float64{0.4636, 2.0802, 2.9003, 1.4193, 2.4323},
		B: [5]float64{0.3682, 4.0312, 22.6493, 71.8200, 103.3691}},
	{Z: 22, Symbol: "Ti",
		A: [5]float64{0.2123, 0.8960, 2.1765, 3.0436, 2.4439},
		B: [5]float64{0.1399, 1.4568, 6.7534, 33.1168, 101.8238}},
	{Z: 23, Symbol: "V",
		A: [5]float64{0.2369, 1.0774, 2.1894, 3.0825, 1.7190},
		B: [5]float64{0.1505, 1.6392, 7.5691, 36.8741, 107.8517}},
	{Z: 24, Symbol: "Cr",
		A: [5]float64{0.1970, 0.8228, 2.0200, 2.1717, 1.7516},
		B: [5]float64{0.1197, 1.1985, 5.4097, 25.2361, 94.4290}},
	{Z: 25, Symbol: "Mn",
		A: [5]float64{0.1943, 0.8190, 1.9296, 2.4968, 2.0625},
		B: [5]float64{0.1135, 1.1313, 5.0341, 24.1798, 80.5598}},
	{Z: 26, Symbol: "Fe",
		A: [5]float64{0.1929, 0.8239, 1.8689, 2.3694, 1.9060},
		B: [5]float64{0.1087, 1.0806, 4.7637, 22.8500, 76.7309}},
	{Z: 27, Symbol: "Co",
		A: [5]float64{0.2186, 0.9861, 1.8540, 2.3258, 1.4685},
		B: [5]float64{0.1182, 1.2300, 5.4177, 25.7602, 80.8542}},
	{Z: 28, Symbol: "Ni",
		A: [5]float64{0.2313, 1.0657, 1.8229, 2.2609, 1.1883},
		B: [5]float64{0.1210, 1.2691, 5.6870, 27.0917, 83.0285}},
	{Z: 29, Symbol: "Cu",
		A: [5]float64{0.3501, 1.6558, 1.9582, 0.2134, 1.4109},
		B: [5]float64{0.1867, 1.9917, 11.3396, 53.2619, 63.2520}},
	{Z: 30, Symbol: "Zn",
		A: [5]float64{0.1780, 0.8096, 1.6744, 1.9499, 1.4495},
		B: [5]float64{0.0876, 0.8650, 3.8612, 18.8726, 64.7016}},
	{Z: 31, Symbol: "Ga",
		A: [5]float64{0.2135, 0.9768, 1.6669, 2.5662, 1.6790},
		B: [5]float64{0.1020, 1.0219, 4.6275, 22.8742, 80.1535}},
	{Z: 32, Symbol: "Ge",
		A: [5]float64{0.2135, 0.9761, 1.6555, 2.8938, 1.6356},
		B: [5]float64{0.0989, 0.9845, 4.5527, 21.5563, 70.3903}},
	{Z: 33, Symbol: "As",
		A: [5]float64{0.2059, 0.9518, 1.6372, 3.0490, 1.4756},
		B: [5]float64{0.0926, 0.9182, 4.3291, 19.2996, 58.9329}},
	{Z: 34, Symbol: "Se",
		A: [5]float64{0.1574, 0.7614, 1.4834, 3.0016, 1.7978},
		B: [5]float64{0.0686, 0.6808, 3.1163, 14.3458, 44.0455}},
	{Z: 35, Symbol: "Br",
		A: [5]float64{0.1899, 0.8983, 1.6358, 3.1845, 1.1518},
		B: [5]float64{0.0810, 0.7957, 3.9054, 15.7701, 45.6124}},
	{Z: 36, Symbol: "Kr",
		A: [5]float64{0.1742, 0.8447, 1.5944, 3.1507, 1.1338},
		B: [5]float64{0.0723, 0.7123, 3.5192, 13.7724, 39.1148}},
	{Z: 37, Symbol: "Rb",
		A: [5]float64{0.3781, 1.4904, 3.5753, 3.0031, 3.3272},
		B: [5]float64{0.1557, 1.5347, 9.9947, 51.4251, 185.9828}},
	{Z: 38, Symbol: "Sr",
		A: [5]float64{0.3723, 1.4598, 3.5124, 4.4612, 3.3031},
		B: [5]float64{0.1480, 1.4643, 9.2320, 49.8807, 148.0937}},
	{Z: 39, Symbol: "Y",
		A: [5]float64{0.3234, 1.2737, 3.2115, 4.0563, 3.7962},
		B: [5]float64{0.1244, 1.1948, 7.2756, 34.1430, 111.2079}},
	{Z: 40, Symbol: "Zr",
		A: [5]float64{0.2997, 1.1879, 3.1075, 3.9740, 3.5769},
		B: [5]float64{0.1121, 1.0638, 6.3891, 28.7081, 97.4289}},
	{Z: 41, Symbol: "Nb",
		A: [5]float64{0.1680, 0.9370, 2.7300, 3.8150, 3.0053},
		B: [5]float64{0.0597, 0.6524, 4.4317, 19.5540, 85.5011}},
	{Z: 42, Symbol: "Mo",
		A: [5]float64{0.3069, 1.1714, 3.2293, 3.4254, 2.1224},
		B: [5]float64{0.1101, 1.0222, 5.9613, 25.1965, 93.5831}},
	{Z: 43, Symbol: "Tc",
		A: [5]float64{0.2928, 1.1267, 3.1675, 3.6619, 2.5942},
		B: [5]float64{0.1020, 0.9481, 5.4713, 23.8153, 82.8991}},
	{Z: 44, Symbol: "Ru",
		A: [5]float64{0.2604, 1.0442, 3.0761, 3.2175, 1.9448},
		B: [5]float64{0.0887, 0.8240, 4.8278, 19.8977, 80.4566}},
	{Z: 45, Symbol: "Rh",
		A: [5]float64{0.2713, 1.0556, 3.1416, 3.0451, 1.7179},
		B: [5]float64{0.0907, 0.8324, 4.7702, 19.7862, 80.2540}},
	{Z: 46, Symbol: "Pd",
		A: [5]float64{0.2003, 0.8779, 2.6135, 2.8594, 1.0258},
		B: [5]float64{0.0659, 0.6111, 3.5563, 12.7638, 44.4283}},
	{Z: 47, Symbol: "Ag",
		A: [5]float64{0.2739, 1.0503, 3.1564, 2.7543, 1.4328},
		B: [5]float64{0.0881, 0.8028, 4.4451, 18.7011, 79.2633}},
	{Z: 48, Symbol: "Cd",
		A: [5]float64{0.3072, 1.1303, 3.2046, 2.9329, 1.6560},
		B: [5]float64{0.0966, 0.8856, 4.6273, 20.6789, 73.4723}},
	{Z: 49, Symbol: "In",
		A: [5]float64{0.3564, 1.3011, 3.2424, 3.4839, 2.0459},
		B: [5]float64{0.1091, 1.0452, 5.0900, 24.6578, 88.0513}},
	{Z: 50, Symbol: "Sn",
		A: [5]float64{0.2966, 1.1157, 3.0973, 3.8156, 2.5281},
		B: [5]float64{0.0896, 0.8268, 4.2242, 20.6900, 71.3399}},
	{Z: 51, Symbol: "Sb",
		A: [5]float64{0.2725, 1.0651, 2.9940, 4.0697, 2.5682},
		B: [5]float64{0.0809, 0.7488, 3.8710, 18.8800, 60.6499}},
	{Z: 52, Symbol: "Te",
		A: [5]float64{0.2422, 0.9692, 2.8114, 4.1509, 2.8161},
		B: [5]float64{0.0708, 0.6472, 3.3609, 16.0752, 50.1724}},
	{Z: 53, Symbol: "I",
		A: [5]float64{0.2617, 1.0325, 2.8097, 4.4809, 2.3190},
		B: [5]float64{0.0749, 0.6914, 3.4634, 16.3603, 48.2522}},
	{Z: 54, Symbol: "Xe",
		A: [5]float64{0.2334, 0.9496, 2.6381, 4.4680, 2.5020},
		B: [5]float64{0.0655, 0.6050, 3.0389, 14.0809, 41.0005}},
	{Z: 55, Symbol: "Cs",
		A: [5]float64{0.5713, 2.4866, 4.9795, 4.0198, 4.4403},
		B: [5]float64{0.1626, 1.8213, 11.1049, 49.0568, 202.9987}},
	{Z: 56, Symbol: "Ba",
		A: [5]float64{0.5229, 2.2874, 4.7243, 5.0807, 5.6389},
		B: [5]float64{0.1434, 1.6019, 9.4511, 42.7685, 148.4969}},
}
