package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// node is one split or leaf of a decision tree. Leaves have Feature == -1.
type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      *node   `json:"left,omitempty"`
	Right     *node   `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// tree contributes its leaf value to the raw score of one class.
type tree struct {
	Class int   `json:"class"`
	Root  *node `json:"root"`
}

// modelFile is the on-disk JSON layout produced by the training exporter:
// a multiclass boosted forest plus the class index to label mapping.
type modelFile struct {
	NumClasses   int               `json:"num_classes"`
	NumFeatures  int               `json:"num_features"`
	LabelMapping map[string]string `json:"label_mapping"`
	FeatureNames []string          `json:"feature_names"`
	Trees        []tree            `json:"trees"`
}

// GBDT evaluates a gradient-boosted decision tree ensemble. Per-class raw
// scores are summed over the trees and turned into probabilities with a
// softmax.
type GBDT struct {
	labels []string
	trees  []tree
	nfeat  int
}

// NewGBDT returns an unloaded classifier.
func NewGBDT() *GBDT {
	return &GBDT{}
}

// Load reads and validates a model file. On error the classifier stays
// unloaded; callers decide whether to continue without ML.
func (g *GBDT) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}

	var m modelFile
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal model JSON: %w", err)
	}

	if m.NumClasses < 2 {
		return fmt.Errorf("model declares %d classes, need at least 2", m.NumClasses)
	}
	if m.NumFeatures <= 0 {
		return fmt.Errorf("model declares %d features", m.NumFeatures)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("model contains no trees")
	}

	labels := make([]string, m.NumClasses)
	for idxStr, label := range m.LabelMapping {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 || idx >= m.NumClasses {
			return fmt.Errorf("invalid class index '%s' in label mapping", idxStr)
		}
		labels[idx] = label
	}
	for i, l := range labels {
		if l == "" {
			return fmt.Errorf("label mapping is missing class %d", i)
		}
	}

	for i, tr := range m.Trees {
		if tr.Class < 0 || tr.Class >= m.NumClasses {
			return fmt.Errorf("tree %d targets unknown class %d", i, tr.Class)
		}
		if err := validateNode(tr.Root, m.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}

	g.labels = labels
	g.trees = m.Trees
	g.nfeat = m.NumFeatures
	return nil
}

func validateNode(n *node, nfeat int) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.Feature < 0 {
		return nil // leaf
	}
	if n.Feature >= nfeat {
		return fmt.Errorf("split on feature %d, model has %d", n.Feature, nfeat)
	}
	if err := validateNode(n.Left, nfeat); err != nil {
		return err
	}
	return validateNode(n.Right, nfeat)
}

// Predict classifies one feature vector.
func (g *GBDT) Predict(features []float64) (Prediction, error) {
	if len(g.trees) == 0 {
		return Prediction{}, fmt.Errorf("no model loaded")
	}
	if len(features) != g.nfeat {
		return Prediction{}, fmt.Errorf("feature vector has %d values, model expects %d", len(features), g.nfeat)
	}

	start := time.Now()

	scores := make([]float64, len(g.labels))
	for _, tr := range g.trees {
		scores[tr.Class] += evalNode(tr.Root, features)
	}

	// Softmax with the max subtracted for stability.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}

	best := 0
	probabilities := make(map[string]float64, len(g.labels))
	for i := range probs {
		probs[i] /= sum
		probabilities[g.labels[i]] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	return Prediction{
		Label:         g.labels[best],
		Confidence:    probs[best],
		Probabilities: probabilities,
		InferenceTime: time.Since(start),
	}, nil
}

func evalNode(n *node, features []float64) float64 {
	for n.Feature >= 0 {
		if features[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Labels returns the class labels in index order.
func (g *GBDT) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Close releases the model.
func (g *GBDT) Close() {
	g.labels = nil
	g.trees = nil
	g.nfeat = 0
}
