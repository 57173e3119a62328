// Package settings holds the runtime configuration document that admins can
// edit while the server runs, and its persistence as a JSON blob in a
// key/value store.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"chatrelay/server/internal/protocol"
)

// Key is the settings key the document is stored under.
const Key = "runtime_config"

// Config is the runtime configuration document.
type Config struct {
	FamilyFriendly bool     `json:"familyFriendly"`
	FilteredTerms  []string `json:"filteredTerms"`
}

// Default returns the configuration used when nothing has been stored yet.
func Default() Config {
	return Config{FamilyFriendly: false, FilteredTerms: []string{}}
}

// Public returns the subset of the configuration every client may see.
func (c Config) Public() protocol.PublicConfig {
	return protocol.PublicConfig{FamilyFriendly: c.FamilyFriendly}
}

// Apply merges the recognized fields of p into a copy of c.
func (c Config) Apply(p protocol.ConfigPatch) Config {
	out := Config{FamilyFriendly: c.FamilyFriendly, FilteredTerms: append([]string(nil), c.FilteredTerms...)}
	if p.FamilyFriendly != nil {
		out.FamilyFriendly = *p.FamilyFriendly
	}
	if p.FilteredTerms != nil {
		out.FilteredTerms = normalizeTerms(*p.FilteredTerms)
	}
	return out
}

// Redact masks every filtered term in text with asterisks when the
// family-friendly toggle is on. Matching is case-insensitive.
func (c Config) Redact(text string) string {
	if !c.FamilyFriendly || len(c.FilteredTerms) == 0 || text == "" {
		return text
	}
	re := c.pattern()
	if re == nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}

func (c Config) pattern() *regexp.Regexp {
	terms := normalizeTerms(c.FilteredTerms)
	if len(terms) == 0 {
		return nil
	}
	// Longest first so overlapping terms mask the widest match.
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

func normalizeTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// KV is the key/value persistence the document is stored in.
type KV interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// Store loads and saves the document through a KV.
type Store struct {
	kv KV
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the stored document. A missing document yields Default with
// no error; an unreadable one yields Default and the error.
func (s *Store) Load() (Config, error) {
	raw, ok, err := s.kv.GetSetting(Key)
	if err != nil {
		return Default(), fmt.Errorf("read %s: %w", Key, err)
	}
	if !ok {
		slog.Debug("runtime config absent, using defaults")
		return Default(), nil
	}
	cfg := Default()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Default(), fmt.Errorf("decode %s: %w", Key, err)
	}
	cfg.FilteredTerms = normalizeTerms(cfg.FilteredTerms)
	return cfg, nil
}

// Save writes the document synchronously.
func (s *Store) Save(cfg Config) error {
	if cfg.FilteredTerms == nil {
		cfg.FilteredTerms = []string{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key, err)
	}
	if err := s.kv.SetSetting(Key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", Key, err)
	}
	slog.Info("runtime config saved", "family_friendly", cfg.FamilyFriendly, "filtered_terms", len(cfg.FilteredTerms))
	return nil
}
