package ptl

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/rotisserie/eris"
)

func abbreviate(values []string) string {
	if len(values) <= 6 {
		return strings.Join(values, " ")
	}
	return strings.Join(values[:3], " ") + " ... " + strings.Join(values[len(values)-3:], " ")
}

func formatFloats(values []float64, format string) []string {
	out := make([]string, len(values))
	for ind, v := range values {
		out[ind] = fmt.Sprintf(format, v)
	}
	return out
}

//Description returns a short description of the split of an internal node.
func (node TreeNode) Description() string {
	if node.Rule.Discrete {
		return fmt.Sprintf("a_%d in {%s}", node.AttributeIndex, abbreviate(formatFloats(node.Rule.LeftValues, "%g")))
	}
	bits := make([]string, len(node.Rule.LeftBins))
	for ind, left := range node.Rule.LeftBins {
		bits[ind] = "0"
		if left {
			bits[ind] = "1"
		}
	}
	return fmt.Sprintf("a_%d bins [%s]", node.AttributeIndex, abbreviate(bits))
}

//Description returns a short description of a leaf distribution.
func (leaf LeafNode) Description() string {
	return fmt.Sprintf("# %d [%s]", leaf.NumberOfRecords, abbreviate(formatFloats(leaf.Distribution, "%.3f")))
}

//Render prints the tree depth first, the left child before the right one.
func (tree *PriceTree) Render(w io.Writer) error {
	if len(tree.TreeNodes) == 0 {
		return eris.Wrap(ErrInvalidArgument, "empty tree")
	}
	return tree.renderHelper(w, 0, "", "")
}

func (tree *PriceTree) renderHelper(w io.Writer, ind int, prefix, childrenPrefix string) error {
	node := tree.TreeNodes[ind]
	if node.IsLeaf() {
		_, err := fmt.Fprintln(w, prefix+tree.LeafNodes[node.LeafIndex].Description())
		return err
	}
	if _, err := fmt.Fprintln(w, prefix+node.Description()); err != nil {
		return err
	}
	if err := tree.renderHelper(w, node.LeftIndex, childrenPrefix+"├── ", childrenPrefix+"│   "); err != nil {
		return err
	}
	return tree.renderHelper(w, node.RightIndex, childrenPrefix+"└── ", childrenPrefix+"    ")
}

func recurrentDraw(g *cgraph.Graph, tree *PriceTree, nodeNumber int, parentNode *cgraph.Node) error {
	node := tree.TreeNodes[nodeNumber]
	currentNode, err := g.CreateNode(fmt.Sprint(node.TreeNodeId))
	if err != nil {
		return eris.Wrapf(err, "create graph node %d", node.TreeNodeId)
	}

	if parentNode != nil {
		if _, err := g.CreateEdge("", parentNode, currentNode); err != nil {
			return eris.Wrapf(err, "create graph edge to %d", node.TreeNodeId)
		}
	}

	if node.IsLeaf() {
		currentNode.Set("label", tree.LeafNodes[node.LeafIndex].Description())
		currentNode.Set("shape", "box")
		return nil
	}
	currentNode.Set("label", fmt.Sprintf("# %d\n%s\ndiv: %.4g", node.NumberOfRecords, node.Description(), node.Divergence))
	if err := recurrentDraw(g, tree, node.LeftIndex, currentNode); err != nil {
		return err
	}
	return recurrentDraw(g, tree, node.RightIndex, currentNode)
}

//DrawGraph builds a graphviz graph of the tree. The caller closes both returned objects.
func (tree *PriceTree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	if len(tree.TreeNodes) == 0 {
		return nil, nil, eris.Wrap(ErrInvalidArgument, "empty tree")
	}
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, eris.Wrap(err, "new graph")
	}
	if err := recurrentDraw(graph, tree, 0, nil); err != nil {
		_ = graph.Close()
		_ = graphViz.Close()
		return nil, nil, err
	}
	return graphViz, graph, nil
}

var graphvizFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
	"dot": graphviz.XDOT,
}

//RenderGraph writes the tree graph in one of the png, svg, jpg or dot formats.
func (tree *PriceTree) RenderGraph(w io.Writer, figureType string) error {
	format, ok := graphvizFormats[figureType]
	if !ok {
		return eris.Wrapf(ErrInvalidArgument, "unknown figure type %q", figureType)
	}
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return eris.Wrap(graphViz.Render(graph, format, w), "render graph")
}
