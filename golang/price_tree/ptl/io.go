package ptl

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//Column layout of a record matrix: won flag, winning price, observed bid, then attributes.
const (
	columnWon = iota
	columnWinningPrice
	columnObservedBid
	recordHeaderWidth
)

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", fileName)
	}
	defer func() { _ = f.Close() }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, eris.Wrapf(err, "npy header of %s", fileName)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, eris.Wrapf(err, "npy data of %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy stores a matrix into an npy file.
func WriteNpy(fileName string, m *mat.Dense) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return eris.Wrapf(err, "create %s", fileName)
	}
	if err := npyio.Write(dst, m); err != nil {
		_ = dst.Close()
		return eris.Wrapf(err, "write %s", fileName)
	}
	return eris.Wrapf(dst.Close(), "close %s", fileName)
}

//RecordsFromMatrix decodes one record per matrix row.
func RecordsFromMatrix(m mat.Matrix) ([]Record, error) {
	h, w := m.Dims()
	if w < recordHeaderWidth {
		return nil, eris.Wrapf(ErrInvalidArgument, "record matrix has %d columns, want at least %d", w, recordHeaderWidth)
	}
	records := make([]Record, h)
	for p := 0; p < h; p++ {
		won := m.At(p, columnWon)
		if won != 0 && won != 1 {
			return nil, eris.Wrapf(ErrInvalidArgument, "row %d: won flag %g is neither 0 nor 1", p, won)
		}
		if bid := m.At(p, columnObservedBid); math.IsNaN(bid) || math.IsInf(bid, 0) {
			return nil, eris.Wrapf(ErrInvalidArgument, "row %d: observed bid %g is not finite", p, bid)
		}
		if price := m.At(p, columnWinningPrice); won == 1 && (math.IsNaN(price) || math.IsInf(price, 0)) {
			return nil, eris.Wrapf(ErrInvalidArgument, "row %d: winning price %g is not finite", p, price)
		}
		records[p] = Record{
			Won:          won == 1,
			WinningPrice: m.At(p, columnWinningPrice),
			ObservedBid:  m.At(p, columnObservedBid),
			Attributes:   make([]float64, w-recordHeaderWidth),
		}
		for q := range records[p].Attributes {
			records[p].Attributes[q] = m.At(p, recordHeaderWidth+q)
		}
	}
	return records, nil
}

//RecordsMatrix encodes records row by row; all records must have the same number of attributes.
func RecordsMatrix(records []Record) (*mat.Dense, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "no records")
	}
	w := len(records[0].Attributes)
	m := mat.NewDense(len(records), recordHeaderWidth+w, nil)
	for p, record := range records {
		if len(record.Attributes) != w {
			return nil, eris.Wrapf(ErrInvalidArgument, "record %d has %d attributes, want %d", p, len(record.Attributes), w)
		}
		if record.Won {
			m.Set(p, columnWon, 1)
		}
		m.Set(p, columnWinningPrice, record.WinningPrice)
		m.Set(p, columnObservedBid, record.ObservedBid)
		for q, value := range record.Attributes {
			m.Set(p, recordHeaderWidth+q, value)
		}
	}
	return m, nil
}

//ReadRecords loads records from an npy matrix.
func ReadRecords(fileName string) ([]Record, error) {
	m, err := ReadNpy(fileName)
	if err != nil {
		return nil, err
	}
	return RecordsFromMatrix(m)
}

//WriteRecords stores records as an npy matrix.
func WriteRecords(fileName string, records []Record) error {
	m, err := RecordsMatrix(records)
	if err != nil {
		return err
	}
	return WriteNpy(fileName, m)
}

//Save stores the tree as indented JSON.
func (tree *PriceTree) Save(fileName string) error {
	modelByteRepr, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal tree")
	}
	return eris.Wrapf(os.WriteFile(fileName, modelByteRepr, 0o644), "write %s", fileName)
}

//LoadModel reads a tree stored by Save.
func LoadModel(fileName string) (*PriceTree, error) {
	source, err := os.Open(fileName)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", fileName)
	}
	defer func() { _ = source.Close() }()

	var tree PriceTree
	if err := json.NewDecoder(source).Decode(&tree); err != nil {
		return nil, eris.Wrapf(err, "decode %s", fileName)
	}
	if err := tree.validate(); err != nil {
		return nil, eris.Wrapf(err, "model %s", fileName)
	}
	return &tree, nil
}

//validate walks the tree from the root and checks every index, rule and distribution
//against the slices they refer to. Every node and every leaf must be reached at most once.
func (tree *PriceTree) validate() error {
	if len(tree.TreeNodes) == 0 {
		return eris.Wrap(ErrInvalidArgument, "empty tree")
	}
	if tree.AttributesNum < 0 {
		return eris.Wrapf(ErrInvalidArgument, "negative number of attributes %d", tree.AttributesNum)
	}
	numBins := tree.PriceBins.NumBins()
	visitedNodes := make([]bool, len(tree.TreeNodes))
	usedLeaves := make([]bool, len(tree.LeafNodes))

	stack := []int{0}
	for len(stack) > 0 {
		ind := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if ind < 0 || ind >= len(tree.TreeNodes) {
			return eris.Wrapf(ErrInvalidArgument, "tree node index %d out of range [0, %d)", ind, len(tree.TreeNodes))
		}
		if visitedNodes[ind] {
			return eris.Wrapf(ErrInvalidArgument, "tree node %d is reached twice", ind)
		}
		visitedNodes[ind] = true
		node := tree.TreeNodes[ind]

		if node.IsLeaf() {
			if node.LeafIndex < 0 || node.LeafIndex >= len(tree.LeafNodes) {
				return eris.Wrapf(ErrInvalidArgument, "node %d: leaf index %d out of range [0, %d)", ind, node.LeafIndex, len(tree.LeafNodes))
			}
			if usedLeaves[node.LeafIndex] {
				return eris.Wrapf(ErrInvalidArgument, "node %d: leaf %d is shared", ind, node.LeafIndex)
			}
			usedLeaves[node.LeafIndex] = true
			if n := len(tree.LeafNodes[node.LeafIndex].Distribution); n != numBins {
				return eris.Wrapf(ErrInvalidArgument, "leaf %d: distribution has %d bins, want %d", node.LeafIndex, n, numBins)
			}
			continue
		}

		if node.AttributeIndex < 0 || node.AttributeIndex >= tree.AttributesNum {
			return eris.Wrapf(ErrInvalidArgument, "node %d: attribute index %d out of range [0, %d)", ind, node.AttributeIndex, tree.AttributesNum)
		}
		if node.Rule.Discrete {
			if !sort.Float64sAreSorted(node.Rule.LeftValues) {
				return eris.Wrapf(ErrInvalidArgument, "node %d: left values are not sorted", ind)
			}
		} else if len(node.Rule.LeftBins) != len(node.Rule.Boundaries)+1 {
			return eris.Wrapf(ErrInvalidArgument, "node %d: %d bucket flags for %d boundaries", ind, len(node.Rule.LeftBins), len(node.Rule.Boundaries))
		}
		stack = append(stack, node.RightIndex, node.LeftIndex)
	}
	return nil
}
