package core

// FruitType is the discrete classification produced by the camera classifier
type FruitType int

const (
	FruitNone FruitType = iota
	FruitOrange
	FruitApple
	FruitRottenApple
)

func (f FruitType) String() string {
	switch f {
	case FruitNone:
		return "None"
	case FruitOrange:
		return "Orange"
	case FruitApple:
		return "Apple"
	case FruitRottenApple:
		return "Rottenapple"
	default:
		return "Unknown"
	}
}

// Family returns the bin colour family that accepts this fruit.
// Rotten apples and unknown fruit have no family.
func (f FruitType) Family() (BinFamily, bool) {
	switch f {
	case FruitApple:
		return FamilyGreen, true
	case FruitOrange:
		return FamilyOrange, true
	default:
		return "", false
	}
}

// BinFamily groups bins by the fruit they accept
type BinFamily string

const (
	FamilyGreen  BinFamily = "green"
	FamilyOrange BinFamily = "orange"
)

// Bin identifies one of the four quota-tracked bins
type Bin string

const (
	BinGreen1  Bin = "bin_green1"
	BinGreen2  Bin = "bin_green2"
	BinOrange1 Bin = "bin_orange1"
	BinOrange2 Bin = "bin_orange2"
)

// AllBins returns the quota-tracked bins in display order
func AllBins() []Bin {
	return []Bin{BinGreen1, BinGreen2, BinOrange1, BinOrange2}
}

// Family returns the colour family of the bin
func (b Bin) Family() BinFamily {
	switch b {
	case BinGreen1, BinGreen2:
		return FamilyGreen
	case BinOrange1, BinOrange2:
		return FamilyOrange
	default:
		return ""
	}
}

// Label returns the short label used in the stage file and on the info panel
func (b Bin) Label() string {
	switch b {
	case BinGreen1:
		return "G1"
	case BinGreen2:
		return "G2"
	case BinOrange1:
		return "O1"
	case BinOrange2:
		return "O2"
	default:
		return "??"
	}
}

// BinFromLabel maps a stage file label such as "G2" or "O1" to its bin
func BinFromLabel(label string) (Bin, bool) {
	switch label {
	case "G1":
		return BinGreen1, true
	case "G2":
		return BinGreen2, true
	case "O1":
		return BinOrange1, true
	case "O2":
		return BinOrange2, true
	default:
		return "", false
	}
}

// BinCounts holds one counter per quota-tracked bin
type BinCounts map[Bin]int

// NewBinCounts returns a zeroed counter for all four bins
func NewBinCounts() BinCounts {
	counts := make(BinCounts, 4)
	for _, b := range AllBins() {
		counts[b] = 0
	}
	return counts
}

// Clone returns an independent copy
func (bc BinCounts) Clone() BinCounts {
	out := make(BinCounts, len(bc))
	for b, n := range bc {
		out[b] = n
	}
	return out
}
