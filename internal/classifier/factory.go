package classifier

import (
	"errors"

	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/llm"
	"github.com/sirupsen/logrus"
)

// New returns the language model classifier when a provider is configured
// and the keyword classifier otherwise
func New(cfg *config.Config) Classifier {
	provider, err := llm.NewProvider(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			logrus.Info("No language model configured, using the heuristic classifier")
		} else {
			logrus.Warnf("Failed to initialize %s provider, using the heuristic classifier: %v", cfg.ResolvedLLMProvider(), err)
		}
		return NewHeuristicClassifier()
	}

	logrus.Infof("Using %s classifier", provider.Name())
	return NewLLMClassifier(provider, Options{
		Brand:             cfg.BrandTerm,
		RequestsPerSecond: cfg.ClassifierRPS,
		Burst:             cfg.ClassifierBurst,
		BreakerThreshold:  uint32(cfg.BreakerThreshold),
		BreakerCooldown:   cfg.BreakerCooldown,
	})
}
