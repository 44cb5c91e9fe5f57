package app

import (
	"fmt"

	"github.com/riskibarqy/fantasy-hoops/external/azblob"
	"github.com/riskibarqy/fantasy-hoops/external/nbaschedule"
	"github.com/riskibarqy/fantasy-hoops/external/yahoo"
	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

type providers struct {
	fantasy  usecase.FantasyProvider
	schedule usecase.ScheduleProvider
	blobs    usecase.BlobUploader
}

func newProviders(cfg config.Config, logger *logging.Logger) (providers, error) {
	p := providers{
		fantasy: yahoo.NewClient(yahoo.ClientConfig{
			BaseURL:        cfg.YahooBaseURL,
			Timeout:        cfg.YahooTimeout,
			MaxRetries:     cfg.YahooMaxRetries,
			FreeAgentLimit: cfg.YahooFreeAgentLimit,
			Logger:         logger,
			CircuitBreaker: circuitBreakerConfig(cfg.YahooCircuit),
		}),
		schedule: nbaschedule.NewClient(nbaschedule.ClientConfig{
			ScheduleURL:    cfg.NBAScheduleURL,
			Timeout:        cfg.NBATimeout,
			CacheTTL:       cfg.NBAScheduleCacheTTL,
			Logger:         logger,
			CircuitBreaker: circuitBreakerConfig(cfg.NBACircuit),
		}),
		blobs: usecase.NewNoopBlobUploader(),
	}

	if !cfg.AzureBlobEnabled {
		logger.Warn("azure blob upload disabled; fetched categories are not persisted")
		return p, nil
	}
	uploader, err := azblob.NewUploader(azblob.UploaderConfig{
		AccountURL:     cfg.AzureBlobAccountURL,
		Container:      cfg.AzureBlobContainer,
		SASToken:       cfg.AzureBlobSASToken,
		Timeout:        cfg.AzureBlobTimeout,
		MaxRetries:     cfg.AzureBlobMaxRetries,
		Logger:         logger,
		CircuitBreaker: circuitBreakerConfig(cfg.AzureBlobCircuit),
	})
	if err != nil {
		return providers{}, fmt.Errorf("build azure blob uploader: %w", err)
	}
	p.blobs = uploader
	return p, nil
}

func circuitBreakerConfig(c config.CircuitConfig) resilience.CircuitBreakerConfig {
	return resilience.NormalizeCircuitBreakerConfig(resilience.CircuitBreakerConfig{
		Enabled:          c.Enabled,
		FailureThreshold: c.FailureCount,
		OpenTimeout:      c.OpenTimeout,
		HalfOpenMaxReq:   c.HalfOpenMaxReq,
	})
}
