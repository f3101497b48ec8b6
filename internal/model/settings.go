package model

// FieldFlags toggles which bookmark fields are rendered into prompts.
type FieldFlags struct {
	IncludeTitle  bool `json:"includeTitle"`
	IncludeURL    bool `json:"includeUrl"`
	IncludeFolder bool `json:"includeFolder"`
}

// DefaultFieldFlags includes every field.
func DefaultFieldFlags() FieldFlags {
	return FieldFlags{IncludeTitle: true, IncludeURL: true, IncludeFolder: true}
}

// DeepSearchSettings configures page-content enrichment.
type DeepSearchSettings struct {
	Enabled     bool `json:"enabled"`
	PreMarkdown bool `json:"preMarkdown"`
	// BatchSize is the number of pages fetched concurrently.
	BatchSize int `json:"batchSize"`
	// CacheDuration is the cache max age in hours.
	CacheDuration int `json:"cacheDuration"`
	// MaxPageSize is the fetch byte cap in KB.
	MaxPageSize int  `json:"maxPageSize"`
	UseMarkdown bool `json:"useMarkdown"`
}

// DefaultDeepSearchSettings mirrors the stock extension settings.
func DefaultDeepSearchSettings() DeepSearchSettings {
	return DeepSearchSettings{BatchSize: 3, CacheDuration: 24, MaxPageSize: 500}
}

// BatchSettings configures how the item list is split into model requests.
type BatchSettings struct {
	Enabled       bool `json:"enabled"`
	BatchSize     int  `json:"batchSize"`
	DeepBatchSize int  `json:"deepBatchSize"`
	MaxBytes      int  `json:"maxBytes"`
}

// ProviderSelection is the persisted choice of LLM backend.
type ProviderSelection struct {
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	OllamaURL   string `json:"ollamaUrl,omitempty"`
	OllamaModel string `json:"ollamaModel,omitempty"`
}
