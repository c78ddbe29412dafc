package ml

import (
	"errors"
	"fmt"
	"math"
)

// DecisionTree is an inference-only tree stored as a preorder node list.
// Children always sit after their parent, so traversal terminates.
type DecisionTree struct {
	nodes   []TreeNode
	classes []int
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func NewDecisionTree(nodes []TreeNode, classes []int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	if len(classes) == 0 {
		return nil, errors.New("tree has no classes")
	}
	for i, node := range nodes {
		if err := checkNode(i, node, len(nodes), len(classes)); err != nil {
			return nil, err
		}
	}
	return &DecisionTree{
		nodes:   append([]TreeNode(nil), nodes...),
		classes: append([]int(nil), classes...),
	}, nil
}

func checkNode(idx int, node TreeNode, nodeCount, classCount int) error {
	if node.IsLeaf {
		if len(node.Value) != classCount {
			return fmt.Errorf("node %d: leaf value has %d entries, want %d", idx, len(node.Value), classCount)
		}
		var total float64
		for _, w := range node.Value {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return fmt.Errorf("node %d: leaf weights must be finite and non-negative", idx)
			}
			total += w
		}
		if total <= 0 {
			return fmt.Errorf("node %d: leaf weights sum to zero", idx)
		}
		return nil
	}
	if node.FeatureIdx < 0 || node.FeatureIdx >= VectorLen {
		return fmt.Errorf("node %d: feature index %d out of range", idx, node.FeatureIdx)
	}
	if math.IsNaN(node.Threshold) {
		return fmt.Errorf("node %d: threshold is NaN", idx)
	}
	for _, child := range []int{node.LeftChild, node.RightChild} {
		if child <= idx || child >= nodeCount {
			return fmt.Errorf("node %d: invalid child index %d", idx, child)
		}
	}
	return nil
}

func (dt *DecisionTree) Classes() []int {
	return append([]int(nil), dt.classes...)
}

func (dt *DecisionTree) NodeCount() int {
	return len(dt.nodes)
}

func (dt *DecisionTree) Predict(v Vector) (int, error) {
	proba, err := dt.PredictProba(v)
	if err != nil {
		return 0, err
	}
	return dt.classes[argmax(proba)], nil
}

// PredictProba returns the normalized class weights of the leaf v lands in.
func (dt *DecisionTree) PredictProba(v Vector) ([]float64, error) {
	node, err := dt.leaf(v)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, w := range node.Value {
		total += w
	}
	proba := make([]float64, len(node.Value))
	for i, w := range node.Value {
		proba[i] = w / total
	}
	return proba, nil
}

func (dt *DecisionTree) leaf(v Vector) (TreeNode, error) {
	if dt == nil || len(dt.nodes) == 0 {
		return TreeNode{}, fmt.Errorf("decision tree: %w", ErrNotLoaded)
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if v.At(node.FeatureIdx) <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

// argmax returns the first index holding the maximum value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
