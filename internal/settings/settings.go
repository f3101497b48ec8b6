// Package settings gives typed access to the persisted user settings.
package settings

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/internal/batch"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/prompt"
	"github.com/yuval-kahan/Bookmarks-Search/internal/store"
)

// Store keys.
const (
	KeyDeepSearch     = "deepSearchSettings"
	KeyBatch          = "batchSettings"
	KeyAPIKeys        = "apiKeys"
	KeyCustomPrompt   = "customPrompt"
	KeyBookmarkFields = "bookmarkFields"
	KeyLastSearch     = "lastSearchAt"
	KeyCustomModels   = "customModels"
	KeyProvider       = "aiProvider"

	verifiedPrefix = "api_verified_"
	verifiedValue  = "verified"
)

// DefaultBatch is used until batch settings are saved.
func DefaultBatch() model.BatchSettings {
	return model.BatchSettings{
		Enabled:       true,
		BatchSize:     batch.DefaultBatchSize,
		DeepBatchSize: batch.DefaultDeepBatchSize,
		MaxBytes:      batch.DefaultMaxBytes,
	}
}

// Settings reads and writes settings in a store.
type Settings struct {
	store store.Store
	now   func() time.Time
	batch model.BatchSettings
	deep  model.DeepSearchSettings
}

// Option configures Settings.
type Option func(*Settings)

// WithBatchDefaults replaces DefaultBatch for stores with no saved batch
// settings.
func WithBatchDefaults(v model.BatchSettings) Option {
	return func(s *Settings) {
		s.batch = v
	}
}

// WithDeepSearchDefaults replaces the stock deep-search settings for stores
// with none saved.
func WithDeepSearchDefaults(v model.DeepSearchSettings) Option {
	return func(s *Settings) {
		s.deep = v
	}
}

// New creates Settings over s.
func New(s store.Store, opts ...Option) *Settings {
	st := &Settings{
		store: s,
		now:   time.Now,
		batch: DefaultBatch(),
		deep:  model.DefaultDeepSearchSettings(),
	}
	for _, o := range opts {
		o(st)
	}
	return st
}

// DeepSearch returns the deep-search settings, or the defaults.
func (s *Settings) DeepSearch(ctx context.Context) (model.DeepSearchSettings, error) {
	v := s.deep
	_, err := store.GetJSON(ctx, s.store, KeyDeepSearch, &v)
	return v, err
}

// SaveDeepSearch persists deep-search settings.
func (s *Settings) SaveDeepSearch(ctx context.Context, v model.DeepSearchSettings) error {
	return store.SetJSON(ctx, s.store, KeyDeepSearch, v)
}

// Batch returns the batch settings, or the defaults.
func (s *Settings) Batch(ctx context.Context) (model.BatchSettings, error) {
	v := s.batch
	_, err := store.GetJSON(ctx, s.store, KeyBatch, &v)
	return v, err
}

// SaveBatch persists batch settings.
func (s *Settings) SaveBatch(ctx context.Context, v model.BatchSettings) error {
	if v.BatchSize < 0 || v.DeepBatchSize < 0 || v.MaxBytes < 0 {
		return eris.New("settings: batch sizes must not be negative")
	}
	return store.SetJSON(ctx, s.store, KeyBatch, v)
}

// APIKeys returns the stored key per provider.
func (s *Settings) APIKeys(ctx context.Context) (map[string]string, error) {
	keys := map[string]string{}
	_, err := store.GetJSON(ctx, s.store, KeyAPIKeys, &keys)
	return keys, err
}

// APIKey returns the key stored for provider, or "".
func (s *Settings) APIKey(ctx context.Context, provider string) (string, error) {
	keys, err := s.APIKeys(ctx)
	if err != nil {
		return "", err
	}
	return keys[provider], nil
}

// SetAPIKey stores the key for provider. An empty key removes it.
func (s *Settings) SetAPIKey(ctx context.Context, provider, key string) error {
	keys, err := s.APIKeys(ctx)
	if err != nil {
		return err
	}
	if key == "" {
		delete(keys, provider)
	} else {
		keys[provider] = key
	}
	return store.SetJSON(ctx, s.store, KeyAPIKeys, keys)
}

// Prompt returns the custom prompt template, or "" for the default.
func (s *Settings) Prompt(ctx context.Context) (string, error) {
	var tpl string
	_, err := store.GetJSON(ctx, s.store, KeyCustomPrompt, &tpl)
	return tpl, err
}

// SavePrompt validates and persists a custom template. An invalid template
// is rejected before anything is written.
func (s *Settings) SavePrompt(ctx context.Context, tpl string) error {
	if err := prompt.ValidateTemplate(tpl); err != nil {
		return err
	}
	return store.SetJSON(ctx, s.store, KeyCustomPrompt, tpl)
}

// ResetPrompt restores the default template.
func (s *Settings) ResetPrompt(ctx context.Context) error {
	return s.store.Delete(ctx, KeyCustomPrompt)
}

// Fields returns the prompt field flags, or all fields.
func (s *Settings) Fields(ctx context.Context) (model.FieldFlags, error) {
	v := model.DefaultFieldFlags()
	_, err := store.GetJSON(ctx, s.store, KeyBookmarkFields, &v)
	return v, err
}

// SaveFields persists the prompt field flags.
func (s *Settings) SaveFields(ctx context.Context, v model.FieldFlags) error {
	return store.SetJSON(ctx, s.store, KeyBookmarkFields, v)
}

// Provider returns the selected LLM backend.
func (s *Settings) Provider(ctx context.Context) (model.ProviderSelection, error) {
	var v model.ProviderSelection
	_, err := store.GetJSON(ctx, s.store, KeyProvider, &v)
	return v, err
}

// SaveProvider persists the selected LLM backend.
func (s *Settings) SaveProvider(ctx context.Context, v model.ProviderSelection) error {
	return store.SetJSON(ctx, s.store, KeyProvider, v)
}

func verifiedKey(provider, model string) string {
	return verifiedPrefix + provider + "_" + model
}

// MarkVerified records that provider/model passed verification.
func (s *Settings) MarkVerified(ctx context.Context, provider, model string) error {
	return store.SetJSON(ctx, s.store, verifiedKey(provider, model), verifiedValue)
}

// IsVerified reports whether provider/model passed verification.
func (s *Settings) IsVerified(ctx context.Context, provider, model string) (bool, error) {
	var v string
	_, err := store.GetJSON(ctx, s.store, verifiedKey(provider, model), &v)
	return v == verifiedValue, err
}

// ClearVerified forgets every verification mark for provider.
func (s *Settings) ClearVerified(ctx context.Context, provider string) error {
	keys, err := s.store.Keys(ctx, verifiedPrefix+provider+"_")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// CustomModels returns the user-added models for provider.
func (s *Settings) CustomModels(ctx context.Context, provider string) ([]string, error) {
	all := map[string][]string{}
	if _, err := store.GetJSON(ctx, s.store, KeyCustomModels, &all); err != nil {
		return nil, err
	}
	return all[provider], nil
}

// AddCustomModel appends a model to provider's list unless already present.
func (s *Settings) AddCustomModel(ctx context.Context, provider, model string) error {
	if model == "" {
		return eris.New("settings: model name is required")
	}
	all := map[string][]string{}
	if _, err := store.GetJSON(ctx, s.store, KeyCustomModels, &all); err != nil {
		return err
	}
	if slices.Contains(all[provider], model) {
		return nil
	}
	all[provider] = append(all[provider], model)
	return store.SetJSON(ctx, s.store, KeyCustomModels, all)
}

// LastSearch returns when the last search ran.
func (s *Settings) LastSearch(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	ok, err := store.GetJSON(ctx, s.store, KeyLastSearch, &t)
	return t, ok, err
}

// TouchLastSearch records the current time as the last search.
func (s *Settings) TouchLastSearch(ctx context.Context) error {
	return store.SetJSON(ctx, s.store, KeyLastSearch, s.now().UTC())
}
