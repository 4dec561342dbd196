package opensearch

// Config holds OpenSearch client settings for the loan index.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES,required" envSeparator:","`
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	Index        string   `env:"OPENSEARCH_LOAN_INDEX" envDefault:"loans"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
}
