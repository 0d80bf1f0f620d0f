package factory

import (
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

// ServiceFactory assembles the classifier service around a loaded provider
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new ServiceFactory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *ServiceFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreatePolicy builds the threshold policy from configuration
func (f *ServiceFactory) CreatePolicy() core.Policy {
	c := f.cfg.GetClassification()
	policy := core.DefaultPolicy()
	if c.OtherCategory != "" {
		policy.OtherCategory = c.OtherCategory
	}
	if c.EmptyLabel != "" {
		policy.EmptyLabel = c.EmptyLabel
	}
	policy.OtherThreshold = c.OtherThreshold
	policy.DisplayThreshold = c.DisplayThreshold
	return policy
}

// CreateBatchOptions returns the ranking options for a run
func (f *ServiceFactory) CreateBatchOptions() core.BatchOptions {
	c := f.cfg.GetClassification()
	return core.BatchOptions{
		TopN:      c.TopN,
		Threshold: c.Threshold,
	}
}

// CreateClassifierService wires normalizer, encoder, and policy around provider
func (f *ServiceFactory) CreateClassifierService(provider core.EmbeddingProvider) *core.ClassifierService {
	c := f.cfg.GetClassification()
	normalizer := core.NewNormalizer(f.CreateTextProcessor(), f.logger, c.MaxTextLength)
	encoder := core.NewEncoder(provider, f.CreateTextProcessor(), f.logger, c.RetryTruncateLength)
	return core.NewClassifierService(encoder, normalizer, f.CreatePolicy(), f.logger, c.PreviewLength, c.ErrorLabel)
}
