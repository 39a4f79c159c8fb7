package config

import (
	"errors"
	"fmt"

	"github.com/matzehuels/cargo2hf/pkg/columnar"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

var (
	// ErrInvalidConcurrency indicates a non-positive concurrency limit
	ErrInvalidConcurrency = errors.New("invalid concurrency")

	// ErrInvalidLimits indicates non-positive traversal limits
	ErrInvalidLimits = errors.New("invalid traversal limits")

	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidRegistry indicates an unusable registry URL or retry count
	ErrInvalidRegistry = errors.New("invalid registry settings")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Validate checks that the configuration is usable. All problems are
// reported together.
func Validate(cfg *Config) error {
	var problems []error

	if cfg.Concurrency <= 0 || cfg.NetworkConcurrency <= 0 {
		problems = append(problems, fmt.Errorf("%w: concurrency=%d network_concurrency=%d",
			ErrInvalidConcurrency, cfg.Concurrency, cfg.NetworkConcurrency))
	}
	if cfg.MaxDepth <= 0 || cfg.MaxNodes <= 0 {
		problems = append(problems, fmt.Errorf("%w: max_depth=%d max_nodes=%d",
			ErrInvalidLimits, cfg.MaxDepth, cfg.MaxNodes))
	}
	if cfg.BatchSize <= 0 {
		problems = append(problems, fmt.Errorf("%w: %d", ErrInvalidBatchSize, cfg.BatchSize))
	}
	if _, err := columnar.ParseCompression(cfg.Compression); err != nil {
		problems = append(problems, err)
	}
	if err := errs.ValidateURL(cfg.Registry.URL); err != nil {
		problems = append(problems, fmt.Errorf("%w: url: %v", ErrInvalidRegistry, err))
	}
	if cfg.Registry.Retries <= 0 {
		problems = append(problems, fmt.Errorf("%w: retries=%d", ErrInvalidRegistry, cfg.Registry.Retries))
	}
	if cfg.Cache.TTL < 0 {
		problems = append(problems, fmt.Errorf("%w: negative ttl", ErrInvalidCacheSettings))
	}
	if cfg.Source.MaxFileSize <= 0 {
		problems = append(problems, fmt.Errorf("source.max_file_size must be positive, got %d", cfg.Source.MaxFileSize))
	}

	if len(problems) == 0 {
		return nil
	}
	return errs.Wrap(errs.ErrCodeConfiguration, errors.Join(problems...), "%d invalid setting(s)", len(problems))
}
