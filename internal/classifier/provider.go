package classifier

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
)

// Provider shares one model across requests. The model is loaded on first
// use; a failed load is reported to that request and retried by the next one.
type Provider struct {
	path     string
	features int
	load     func(path string) (*Model, error)
	logger *zap.Logger

	mu    sync.RWMutex
	model *Model
}

// NewProvider creates a Provider for the model at path. A model whose
// feature count differs from features is refused; zero accepts any model.
func NewProvider(path string, features int, logger *zap.Logger) *Provider {
	return &Provider{
		path:     path,
		features: features,
		load:     LoadModel,
		logger:   logger.With(zap.String("component", "classifier")),
	}
}

// Load loads the model if it is not loaded yet.
func (p *Provider) Load() error {
	_, err := p.get()
	return err
}

// Predict implements Classifier.
func (p *Provider) Predict(ctx context.Context, rows [][]float64) ([]int, error) {
	model, err := p.get()
	if err != nil {
		return nil, err
	}
	predictions, err := model.Predict(ctx, rows)
	if err != nil {
		return nil, apierr.Wrap(apierr.ErrClassifierUnavailable, err)
	}
	return predictions, nil
}

// Close releases the loaded model.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = nil
	return nil
}

func (p *Provider) get() (*Model, error) {
	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}
	model, err := p.load(p.path)
	if err == nil && p.features > 0 && model.FeatureCount() != p.features {
		err = fmt.Errorf("model %s expects %d features, sessions provide %d", p.path, model.FeatureCount(), p.features)
	}
	if err != nil {
		p.logger.Error("failed to load classifier model", zap.String("path", p.path), zap.Error(err))
		return nil, apierr.Wrap(apierr.ErrClassifierUnavailable, err)
	}
	p.logger.Info("loaded classifier model",
		zap.String("path", p.path),
		zap.Int("trees", len(model.trees)),
		zap.Int("features", model.FeatureCount()))
	p.model = model
	return model, nil
}
