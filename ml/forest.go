package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the leaf distributions of its trees.
type RandomForest struct {
	trees   []*DecisionTree
	classes []int
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	var classes []int
	for i, tree := range trees {
		if tree == nil {
			return nil, fmt.Errorf("tree %d is nil", i)
		}
		if i == 0 {
			classes = tree.classes
		}
		if !equalInts(tree.classes, classes) {
			return nil, fmt.Errorf("tree %d: classes differ from tree 0", i)
		}
	}
	return &RandomForest{
		trees:   append([]*DecisionTree(nil), trees...),
		classes: append([]int(nil), classes...),
	}, nil
}

func (rf *RandomForest) Classes() []int {
	return append([]int(nil), rf.classes...)
}

func (rf *RandomForest) TreeCount() int {
	return len(rf.trees)
}

func (rf *RandomForest) Predict(v Vector) (int, error) {
	proba, err := rf.PredictProba(v)
	if err != nil {
		return 0, err
	}
	return rf.classes[argmax(proba)], nil
}

func (rf *RandomForest) PredictProba(v Vector) ([]float64, error) {
	if rf == nil || len(rf.trees) == 0 {
		return nil, fmt.Errorf("random forest: %w", ErrNotLoaded)
	}
	sum := make([]float64, len(rf.classes))
	for i, tree := range rf.trees {
		proba, err := tree.PredictProba(v)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for j, p := range proba {
			sum[j] += p
		}
	}
	n := float64(len(rf.trees))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
