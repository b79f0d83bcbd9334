package config

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
)

// ParseRelationships decodes a JSON array of rules. Empty input, malformed JSON
// and arrays containing incomplete rules all yield no rules with a warning.
func ParseRelationships(raw string) []RelationshipRule {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var rules []RelationshipRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		logger.Get().Warn("ignoring malformed relationship rules", zap.Error(err))
		return nil
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			logger.Get().Warn("ignoring relationship rules", zap.Int("index", i), zap.Error(err))
			return nil
		}
	}
	return rules
}

// ParseMappings parses "src:dst" pairs. Each pair is split on its first colon,
// so destination names may contain colons. Two sources may not share a
// destination name.
func ParseMappings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		src, dst, ok := strings.Cut(pair, ":")
		if !ok || src == "" || dst == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "invalid mapping %q, expected src:dst", pair)
		}
		out[src] = dst
	}
	if err := ValidateMappings(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateMappings rejects mappings that send two source fields to the same
// destination column.
func ValidateMappings(mappings map[string]string) error {
	sources := make([]string, 0, len(mappings))
	for src := range mappings {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	seen := make(map[string]string, len(mappings))
	for _, src := range sources {
		dst := mappings[src]
		if prev, ok := seen[dst]; ok {
			return errors.Newf(errors.ErrorTypeConfig,
				"mappings %q and %q both target column %q", prev, src, dst)
		}
		seen[dst] = src
	}
	return nil
}
