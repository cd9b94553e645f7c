// Package inference defines the contract of the speech metric inference service.
package inference

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/9ooDa/mopic/internal/apierr"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client scores one recorded answer.
type Client interface {
	Infer(ctx context.Context, req Request) (*Metrics, error)
}

// Request identifies the audio artifact and the prompt it answers.
type Request struct {
	Path     string `json:"data"`
	Question string `json:"question"`
}

// Metrics is the metric bundle produced for one answer.
type Metrics struct {
	WPM       *float64 `json:"wpm"`
	MLR       *float64 `json:"mlr"`
	Pause     *float64 `json:"pause"`
	Grammar   Grammar  `json:"grammar"`
	MPR       *float64 `json:"mpr"`
	Coherence string   `json:"coherence"`
}

// Validate fails with apierr.ErrInvalidMetrics when a required field is
// missing or not a finite number.
func (m *Metrics) Validate() error {
	if m == nil {
		return apierr.Errorf(apierr.ErrInvalidMetrics, "inference response is empty")
	}
	fields := []struct {
		name  string
		value *float64
	}{
		{"wpm", m.WPM},
		{"mlr", m.MLR},
		{"pause", m.Pause},
		{"mpr", m.MPR},
	}
	var missing []string
	for _, f := range fields {
		if f.value == nil || math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			missing = append(missing, f.name)
		}
	}
	if strings.TrimSpace(m.Coherence) == "" {
		missing = append(missing, "coherence")
	}
	if len(missing) > 0 {
		return apierr.Errorf(apierr.ErrInvalidMetrics, "inference response is missing %s", strings.Join(missing, ", "))
	}
	if _, err := m.Grammar.Phase2Score(); err != nil {
		return err
	}
	return nil
}

// Grammar holds the grammar assessment exactly as the inference service returns it.
// Only phase_2.score is interpreted.
type Grammar json.RawMessage

type grammarPhases struct {
	Phase2 *struct {
		Score *float64 `json:"score"`
	} `json:"phase_2"`
}

// Phase2Score returns grammar.phase_2.score.
func (g Grammar) Phase2Score() (float64, error) {
	if len(g) == 0 {
		return 0, apierr.Errorf(apierr.ErrInvalidMetrics, "grammar is missing")
	}
	var phases grammarPhases
	if err := json.Unmarshal(g, &phases); err != nil {
		return 0, apierr.Errorf(apierr.ErrInvalidMetrics, "decode grammar: %v", err)
	}
	if phases.Phase2 == nil || phases.Phase2.Score == nil {
		return 0, apierr.Errorf(apierr.ErrInvalidMetrics, "grammar.phase_2.score is missing")
	}
	return *phases.Phase2.Score, nil
}

// MarshalJSON returns the stored document unchanged.
func (g Grammar) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON keeps a copy of data.
func (g *Grammar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = nil
		return nil
	}
	*g = append((*g)[0:0], data...)
	return nil
}

// Value implements driver.Valuer for the JSON column.
func (g Grammar) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	return []byte(g), nil
}

// Scan implements sql.Scanner for the JSON column.
func (g *Grammar) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = nil
	case []byte:
		*g = append((*g)[0:0], v...)
	case string:
		*g = Grammar(v)
	default:
		return fmt.Errorf("scan grammar: unsupported type %T", src)
	}
	return nil
}
