package ptl

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
	"go.uber.org/zap"
)

//SplitRule routes a feature value to the left or the right child. A discrete rule keeps the
//sorted set of left values, a continuous rule keeps the frozen boundaries and one left flag
//per bucket.
type SplitRule struct {
	Discrete   bool
	LeftValues []float64 `json:",omitempty"`
	Boundaries []float64 `json:",omitempty"`
	LeftBins   []bool    `json:",omitempty"`
}

func newSplitRule(ab AttributeBins, assignment []bool) SplitRule {
	if ab.Discrete {
		rule := SplitRule{Discrete: true}
		for b, left := range assignment {
			if left {
				rule.LeftValues = append(rule.LeftValues, ab.Values[b])
			}
		}
		return rule
	}
	return SplitRule{
		Boundaries: append([]float64(nil), ab.Boundaries...),
		LeftBins:   append([]bool(nil), assignment...),
	}
}

//GoesLeft reports whether a value descends to the left child. Discrete values that are not
//in the left set, including values never seen in training, go right.
func (rule SplitRule) GoesLeft(value float64) bool {
	if rule.Discrete {
		pos := sort.SearchFloat64s(rule.LeftValues, value)
		return pos < len(rule.LeftValues) && rule.LeftValues[pos] == value
	}
	return rule.LeftBins[sort.SearchFloat64s(rule.Boundaries, value)]
}

//TreeNode is a node of a tree. Tree is stored in an array. LeftIndex and RightIndex are equal to -1
//when the current node is a leaf otherwise they contain array indices of children.
//A leaf node contains LeafIndex that is an index of the LeafNodes array.
type TreeNode struct {
	TreeNodeId            int
	AttributeIndex        int
	Rule                  SplitRule
	LeftIndex, RightIndex int // -1, -1 if it is a leaf
	LeafIndex             int // -1 if it is a non-leaf tree node
	NumberOfRecords       int
	Divergence            float64
	Depth                 int
}

func NewTreeNode() TreeNode {
	return TreeNode{AttributeIndex: -1, LeftIndex: -1, RightIndex: -1, LeafIndex: -1}
}

//NewTreeNodeFromSplitInfo creates a new internal node from the winning split.
func NewTreeNodeFromSplitInfo(splitInfo BestSplit, treeNodeId, depth int) TreeNode {
	treeNode := NewTreeNode()
	treeNode.TreeNodeId = treeNodeId
	treeNode.AttributeIndex = splitInfo.featureIndex
	treeNode.Rule = splitInfo.rule
	treeNode.NumberOfRecords = splitInfo.numberOfObjects
	treeNode.Divergence = splitInfo.bestValue
	treeNode.Depth = depth
	return treeNode
}

//IsLeaf returns whether this node refers to a LeafNode.
func (node TreeNode) IsLeaf() bool {
	return node.LeafIndex != -1
}

//LeafNode stores the fitted cumulative price distribution of a partition.
type LeafNode struct {
	LeafNodeId      int
	Distribution    []float64
	NumberOfRecords int
	Depth           int
}

//PriceTree is the immutable result of the partitioner. The root is TreeNodes[0].
type PriceTree struct {
	AttributesNum int
	PriceBins     survival.PriceBins
	TreeNodes     []TreeNode
	LeafNodes     []LeafNode
}

//NewPriceTree grows a tree over all records of the dataset.
func NewPriceTree(ds *Dataset, params TreeParams) (*PriceTree, error) {
	if ds == nil {
		return nil, eris.Wrap(ErrInvalidArgument, "nil dataset")
	}
	params, err := params.validated()
	if err != nil {
		return nil, err
	}

	tree := &PriceTree{AttributesNum: ds.Width(), PriceBins: ds.Binning.Price}
	if _, err := tree.BuildTree(ds, ds.RecordIds(), params, 1, params.Seed); err != nil {
		return nil, eris.Wrap(err, "build tree")
	}

	params.Logger.Info("tree is built",
		zap.Int("records", ds.Height()),
		zap.Int("nodes", len(tree.TreeNodes)),
		zap.Int("leaves", len(tree.LeafNodes)),
		zap.Int("height", tree.Height()),
	)
	return tree, nil
}

//BuildTree recurrently builds a tree node over the records ids at the given depth and returns
//its index. The node seeds its own random source; children get seeds drawn from it after the
//attribute searches.
func (tree *PriceTree) BuildTree(ds *Dataset, ids []int, params TreeParams, depth int, seed int64) (int, error) {
	if len(ids) >= params.MinLeafSize && depth < params.MaxHeight {
		rng := rand.New(rand.NewSource(seed))
		bestSplit, err := TheBestSplit(ds, ids, params, rng)
		if err != nil {
			return -1, err
		}
		if bestSplit != nil {
			treeNodeId := len(tree.TreeNodes)
			tree.TreeNodes = append(tree.TreeNodes, NewTreeNodeFromSplitInfo(*bestSplit, treeNodeId, depth))
			params.Logger.Debug("split accepted",
				zap.Int("node", treeNodeId),
				zap.Int("depth", depth),
				zap.Int("attribute", bestSplit.featureIndex),
				zap.Float64("divergence", bestSplit.bestValue),
				zap.Int("passes", bestSplit.passes),
				zap.Int("left", len(bestSplit.leftIds)),
				zap.Int("right", len(bestSplit.rightIds)),
			)

			leftSeed, rightSeed := rng.Int63(), rng.Int63()
			leftNodeId, err := tree.BuildTree(ds, bestSplit.leftIds, params, depth+1, leftSeed)
			if err != nil {
				return -1, err
			}
			tree.TreeNodes[treeNodeId].LeftIndex = leftNodeId

			rightNodeId, err := tree.BuildTree(ds, bestSplit.rightIds, params, depth+1, rightSeed)
			if err != nil {
				return -1, err
			}
			tree.TreeNodes[treeNodeId].RightIndex = rightNodeId
			return treeNodeId, nil
		}
		params.Logger.Debug("no split", zap.Int("depth", depth), zap.Int("records", len(ids)))
	}

	treeNodeId := len(tree.TreeNodes)
	currentTreeNode := NewTreeNode()
	currentTreeNode.TreeNodeId = treeNodeId
	currentTreeNode.NumberOfRecords = len(ids)
	currentTreeNode.Depth = depth
	currentTreeNode.LeafIndex = len(tree.LeafNodes)
	tree.TreeNodes = append(tree.TreeNodes, currentTreeNode)

	tree.LeafNodes = append(tree.LeafNodes, LeafNode{
		LeafNodeId:      currentTreeNode.LeafIndex,
		Distribution:    params.Estimator.Estimate(ds.observations(ids)),
		NumberOfRecords: len(ids),
		Depth:           depth,
	})
	return treeNodeId, nil
}

//Height returns the number of levels of the tree.
func (tree *PriceTree) Height() (height int) {
	for _, leaf := range tree.LeafNodes {
		if leaf.Depth > height {
			height = leaf.Depth
		}
	}
	return
}

//Node returns the tree node with the given index.
func (tree *PriceTree) Node(ind int) (TreeNode, error) {
	if ind < 0 || ind >= len(tree.TreeNodes) {
		return TreeNode{}, eris.Wrapf(ErrInvalidArgument, "tree node index %d out of range [0, %d)", ind, len(tree.TreeNodes))
	}
	return tree.TreeNodes[ind], nil
}

//Leaf returns the leaf node with the given index.
func (tree *PriceTree) Leaf(ind int) (LeafNode, error) {
	if ind < 0 || ind >= len(tree.LeafNodes) {
		return LeafNode{}, eris.Wrapf(ErrInvalidArgument, "leaf index %d out of range [0, %d)", ind, len(tree.LeafNodes))
	}
	return tree.LeafNodes[ind], nil
}
