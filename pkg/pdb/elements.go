package pdb

import "strings"

// symbols is indexed by atomic number.
var symbols = []string{"",
	"H", "HE", "LI", "BE", "B", "C", "N", "O", "F", "NE",
	"NA", "MG", "AL", "SI", "P", "S", "CL", "AR", "K", "CA",
	"SC", "TI", "V", "CR", "MN", "FE", "CO", "NI", "CU", "ZN",
	"GA", "GE", "AS", "SE", "BR", "KR", "RB", "SR", "Y", "ZR",
	"NB", "MO", "TC", "RU", "RH", "PD", "AG", "CD", "IN", "SN",
	"SB", "TE", "I", "XE", "CS", "BA",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(symbols)+1)
	for z, s := range symbols {
		if s != "" {
			m[s] = z
		}
	}
	m["D"] = 1
	return m
}()

// AtomicNumber resolves an element symbol such as "C" or "Zn".
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumbers[strings.ToUpper(strings.TrimSpace(symbol))]
	return z, ok
}
