package ptl

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

//leafFor descends from the root to the leaf of a feature vector of the right length.
func (tree *PriceTree) leafFor(features []float64) (LeafNode, error) {
	if len(tree.TreeNodes) == 0 {
		return LeafNode{}, eris.Wrap(ErrInvalidArgument, "empty tree")
	}
	ind := 0
	for tree.TreeNodes[ind].LeafIndex == -1 {
		node := tree.TreeNodes[ind]
		if node.Rule.GoesLeft(features[node.AttributeIndex]) {
			ind = node.LeftIndex
		} else {
			ind = node.RightIndex
		}
	}
	return tree.LeafNodes[tree.TreeNodes[ind].LeafIndex], nil
}

//Predict returns a copy of the leaf distribution for one feature vector. The attribute order
//must be the training one.
func (tree *PriceTree) Predict(features []float64) ([]float64, error) {
	if len(features) != tree.AttributesNum {
		return nil, eris.Wrapf(ErrInvalidArgument, "feature vector has %d values, want %d", len(features), tree.AttributesNum)
	}
	leaf, err := tree.leafFor(features)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), leaf.Distribution...), nil
}

//PredictMatrix infers a distribution for every row of features. The result has one row per
//feature row and one column per price bin.
func (tree *PriceTree) PredictMatrix(features mat.Matrix) (*mat.Dense, error) {
	h, w := features.Dims()
	if h == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "empty feature matrix")
	}
	if w != tree.AttributesNum {
		return nil, eris.Wrapf(ErrInvalidArgument, "feature matrix has %d columns, want %d", w, tree.AttributesNum)
	}
	prediction := mat.NewDense(h, tree.PriceBins.NumBins(), nil)
	row := make([]float64, w)
	for p := 0; p < h; p++ {
		mat.Row(row, p, features)
		leaf, err := tree.leafFor(row)
		if err != nil {
			return nil, err
		}
		prediction.SetRow(p, leaf.Distribution)
	}
	return prediction, nil
}
