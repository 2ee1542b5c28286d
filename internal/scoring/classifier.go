package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Classifier kinds accepted in the model artifact.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
)

// Classifier returns the probability of the positive class for a scaled row.
type Classifier interface {
	Kind() string
	NumFeatures() int
	PredictProbability(row FeatureRow) (float64, error)
}

// LogisticRegression is a fitted binary logistic model.
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) != NumFeatures {
		return nil, fmt.Errorf("logistic regression expects %d coefficients, got %d", NumFeatures, len(coef))
	}
	for i, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, errors.New("intercept is not finite")
	}
	return &LogisticRegression{coef: append([]float64(nil), coef...), intercept: intercept}, nil
}

func (m *LogisticRegression) Kind() string     { return KindLogisticRegression }
func (m *LogisticRegression) NumFeatures() int { return len(m.coef) }

func (m *LogisticRegression) PredictProbability(row FeatureRow) (float64, error) {
	if len(row) != len(m.coef) {
		return 0, fmt.Errorf("%w: expected %d columns, got %d", ErrInvalidFeatureRow, len(m.coef), len(row))
	}
	z := m.intercept
	for i, x := range row {
		z += m.coef[i] * x
	}
	return expit(z), nil
}

// expit is the logistic sigmoid, split on sign so neither branch overflows.
func expit(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

const leafNode = -1

// DecisionTree is a fitted binary tree in parallel-array form. Node 0 is the
// root; leaves have both children set to -1. Value holds the per-class mass
// of each node.
type DecisionTree struct {
	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	Value         [][2]float64
}

// Validate checks the arrays describe a well-formed tree over numFeatures
// columns. Children always point forward so traversal terminates.
func (t *DecisionTree) Validate(numFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays differ in length (%d nodes)", n)
	}
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leafNode || right == leafNode {
			if left != right {
				return fmt.Errorf("node %d has exactly one child", i)
			}
			for _, m := range t.Value[i] {
				if math.IsNaN(m) || math.IsInf(m, 0) {
					return fmt.Errorf("leaf %d has non-finite class mass", i)
				}
			}
			if t.Value[i][0] < 0 || t.Value[i][1] < 0 {
				return fmt.Errorf("leaf %d has negative class mass", i)
			}
			if t.Value[i][0]+t.Value[i][1] <= 0 {
				return fmt.Errorf("leaf %d has no class mass", i)
			}
			continue
		}
		if left <= i || right <= i || left >= n || right >= n {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d outside [0,%d)", i, t.Feature[i], numFeatures)
		}
		if math.IsNaN(t.Threshold[i]) {
			return fmt.Errorf("node %d threshold is NaN", i)
		}
	}
	return nil
}

// positiveMass walks the tree and returns the leaf's normalised class-1
// fraction. Inputs are narrowed to float32 before comparison, which is the
// precision the thresholds were fitted at.
func (t *DecisionTree) positiveMass(row FeatureRow) float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		x := float64(float32(row[t.Feature[node]]))
		if x <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	v := t.Value[node]
	return v[1] / (v[0] + v[1])
}

// RandomForest averages the leaf probabilities of its trees.
type RandomForest struct {
	trees       []DecisionTree
	numFeatures int
}

func NewRandomForest(numFeatures int, trees []DecisionTree) (*RandomForest, error) {
	if numFeatures != NumFeatures {
		return nil, fmt.Errorf("random forest expects %d features, got %d", NumFeatures, numFeatures)
	}
	if len(trees) == 0 {
		return nil, errors.New("random forest has no trees")
	}
	for i := range trees {
		if err := trees[i].Validate(numFeatures); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForest{trees: trees, numFeatures: numFeatures}, nil
}

func (f *RandomForest) Kind() string     { return KindRandomForest }
func (f *RandomForest) NumFeatures() int { return f.numFeatures }

func (f *RandomForest) PredictProbability(row FeatureRow) (float64, error) {
	if len(row) != f.numFeatures {
		return 0, fmt.Errorf("%w: expected %d columns, got %d", ErrInvalidFeatureRow, f.numFeatures, len(row))
	}
	var sum float64
	for i := range f.trees {
		sum += f.trees[i].positiveMass(row)
	}
	return sum / float64(len(f.trees)), nil
}
