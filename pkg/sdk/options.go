package manualrag

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalog  string
	root     string
	products []Product

	textEmbedder  Embedder
	imageEmbedder Embedder
	backend       string

	weights     *Weights
	threshold   float64
	parallelism int
	imagePrefix string

	cacheAddr      string
	cachePassword  string
	cacheNamespace string
	cacheTTL       time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalog loads the manuals listed in a manuals_metadata.json file.
// Relative pdf paths are resolved against root.
func WithCatalog(path, root string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalog = path
		c.root = root
	})
}

// WithManuals loads the given products instead of reading a catalog file.
func WithManuals(products ...Product) Option {
	return optionFunc(func(c *clientConfig) {
		c.products = append(c.products, products...)
	})
}

// WithEmbedders sets the query embedders: text serves the text and table
// indexes, image is the cross-modal model the page images were indexed with.
// Without them the client runs substring search.
func WithEmbedders(text, image Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.textEmbedder = text
		c.imageEmbedder = image
	})
}

// WithBackend selects the similarity backend: "flat" (default) or "sqlite-vec".
// An unavailable backend degrades to substring search.
func WithBackend(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = name
	})
}

// WithDefaultWeights sets the modality weights used when a search does not override them.
// Defaults: text 1.0, tables 1.0, images 1.5.
func WithDefaultWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = &w
	})
}

// WithRelevanceThreshold sets the score a hit must exceed to count toward a
// product's relevance summary. Default: 0.1.
func WithRelevanceThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = t
	})
}

// WithParallelism bounds how many manuals are searched concurrently. Default: 8.
func WithParallelism(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallelism = n
	})
}

// WithImagePrefix sets the URL prefix of evidence image URLs. Default: /images.
func WithImagePrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.imagePrefix = prefix
	})
}

// WithRedis caches query embeddings in Redis for ttl (0 keeps entries forever).
//
// namespace must name the embedding models, e.g. "minilm-l6+clip-b32".
// Cached vectors are keyed by namespace and query text only, so switching
// models under the same namespace serves the old model's vectors.
func WithRedis(addr, password, namespace string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddr = addr
		c.cachePassword = password
		c.cacheNamespace = namespace
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
