// Package classifier predicts proficiency classes with a CatBoost model exported as JSON.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/9ooDa/mopic/internal/assessment"
)

//go:generate mockgen -source=model.go -destination=../mocks/classifier/mock_classifier.go -package=mock_classifier

// Classifier maps feature rows to class indices, one per row.
type Classifier interface {
	Predict(ctx context.Context, rows [][]float64) ([]int, error)
}

// modelFile mirrors the parts of CatBoost's JSON export used for prediction.
type modelFile struct {
	FeaturesInfo struct {
		FloatFeatures []struct {
			FeatureIndex     int `json:"feature_index"`
			FlatFeatureIndex int `json:"flat_feature_index"`
		} `json:"float_features"`
	} `json:"features_info"`
	ObliviousTrees []struct {
		LeafValues []float64 `json:"leaf_values"`
		Splits     []struct {
			FloatFeatureIndex int     `json:"float_feature_index"`
			Border            float64 `json:"border"`
			SplitType         string  `json:"split_type"`
		} `json:"splits"`
	} `json:"oblivious_trees"`
	ScaleAndBias []json.RawMessage `json:"scale_and_bias"`
	ModelInfo    struct {
		ClassParams struct {
			ClassToLabel []json.RawMessage `json:"class_to_label"`
		} `json:"class_params"`
	} `json:"model_info"`
}

type split struct {
	feature int
	border  float64
}

type tree struct {
	splits []split
	leaves []float64
}

// Model evaluates a CatBoost multiclass model over oblivious trees.
type Model struct {
	featureCount int
	dimension    int
	trees        []tree
	scale        float64
	bias         []float64
	classToLabel []int
}

// LoadModel reads a model exported with save_model(format="json").
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	model, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return model, nil
}

// ParseModel decodes a CatBoost JSON model.
func ParseModel(data []byte) (*Model, error) {
	var file modelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("json.Unmarshal > %w", err)
	}
	if len(file.ObliviousTrees) == 0 {
		return nil, errors.New("model has no trees")
	}

	flatIndex := make(map[int]int, len(file.FeaturesInfo.FloatFeatures))
	for _, f := range file.FeaturesInfo.FloatFeatures {
		flatIndex[f.FeatureIndex] = f.FlatFeatureIndex
	}

	m := &Model{featureCount: len(file.FeaturesInfo.FloatFeatures), scale: 1}
	for i, t := range file.ObliviousTrees {
		leafCount := 1 << len(t.Splits)
		if len(t.LeafValues) == 0 || len(t.LeafValues)%leafCount != 0 {
			return nil, fmt.Errorf("tree %d has %d leaf values for depth %d", i, len(t.LeafValues), len(t.Splits))
		}
		dimension := len(t.LeafValues) / leafCount
		if m.dimension == 0 {
			m.dimension = dimension
		} else if m.dimension != dimension {
			return nil, fmt.Errorf("tree %d has dimension %d, want %d", i, dimension, m.dimension)
		}

		parsed := tree{leaves: t.LeafValues, splits: make([]split, len(t.Splits))}
		for j, s := range t.Splits {
			if s.SplitType != "" && s.SplitType != "FloatFeature" {
				return nil, fmt.Errorf("tree %d: unsupported split type %q", i, s.SplitType)
			}
			feature := s.FloatFeatureIndex
			if flat, ok := flatIndex[feature]; ok {
				feature = flat
			}
			if feature+1 > m.featureCount {
				m.featureCount = feature + 1
			}
			parsed.splits[j] = split{feature: feature, border: s.Border}
		}
		m.trees = append(m.trees, parsed)
	}

	if err := m.parseScaleAndBias(file.ScaleAndBias); err != nil {
		return nil, err
	}
	if err := m.parseClassToLabel(file.ModelInfo.ClassParams.ClassToLabel); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) parseScaleAndBias(raw []json.RawMessage) error {
	m.bias = make([]float64, m.dimension)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw[0], &m.scale); err != nil {
		return fmt.Errorf("decode scale: %w", err)
	}
	if len(raw) < 2 {
		return nil
	}
	var bias []float64
	if err := json.Unmarshal(raw[1], &bias); err != nil {
		var single float64
		if err := json.Unmarshal(raw[1], &single); err != nil {
			return fmt.Errorf("decode bias: %w", err)
		}
		bias = []float64{single}
	}
	switch len(bias) {
	case 0:
	case m.dimension:
		copy(m.bias, bias)
	case 1:
		for i := range m.bias {
			m.bias[i] = bias[0]
		}
	default:
		return fmt.Errorf("bias has %d values, want %d", len(bias), m.dimension)
	}
	return nil
}

// parseClassToLabel accepts numeric class labels or proficiency label names.
func (m *Model) parseClassToLabel(raw []json.RawMessage) error {
	classes := m.dimension
	if classes == 1 {
		classes = 2
	}
	if len(raw) == 0 {
		m.classToLabel = make([]int, classes)
		for i := range m.classToLabel {
			m.classToLabel[i] = i
		}
		return nil
	}
	if len(raw) != classes {
		return fmt.Errorf("class_to_label has %d entries, want %d", len(raw), classes)
	}

	m.classToLabel = make([]int, len(raw))
	for i, r := range raw {
		var number float64
		if err := json.Unmarshal(r, &number); err == nil {
			m.classToLabel[i] = int(number)
			continue
		}
		var name string
		if err := json.Unmarshal(r, &name); err != nil {
			return fmt.Errorf("class_to_label[%d]: %s is neither a number nor a string", i, r)
		}
		if n, err := strconv.Atoi(name); err == nil {
			m.classToLabel[i] = n
			continue
		}
		index := -1
		for j, label := range assessment.Labels {
			if string(label) == name {
				index = j
			}
		}
		if index < 0 {
			return fmt.Errorf("class_to_label[%d]: unknown label %q", i, name)
		}
		m.classToLabel[i] = index
	}
	return nil
}

// FeatureCount returns the number of columns each row must have.
func (m *Model) FeatureCount() int {
	return m.featureCount
}

// Predict returns the most probable class of each row.
func (m *Model) Predict(_ context.Context, rows [][]float64) ([]int, error) {
	predictions := make([]int, len(rows))
	for i, row := range rows {
		if len(row) != m.featureCount {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), m.featureCount)
		}
		predictions[i] = m.classToLabel[m.predictClass(row)]
	}
	return predictions, nil
}

func (m *Model) predictClass(row []float64) int {
	raw := m.rawValues(row)
	if m.dimension == 1 {
		if raw[0] > 0 {
			return 1
		}
		return 0
	}
	best := 0
	for c := 1; c < len(raw); c++ {
		if raw[c] > raw[best] {
			best = c
		}
	}
	return best
}

func (m *Model) rawValues(row []float64) []float64 {
	sums := make([]float64, m.dimension)
	for _, t := range m.trees {
		index := 0
		for depth, s := range t.splits {
			if row[s.feature] > s.border {
				index |= 1 << depth
			}
		}
		for c := range sums {
			sums[c] += t.leaves[index*m.dimension+c]
		}
	}
	for c := range sums {
		sums[c] = m.scale*sums[c] + m.bias[c]
		if math.IsNaN(sums[c]) {
			sums[c] = math.Inf(-1)
		}
	}
	return sums
}
