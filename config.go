package adblockcore

import (
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/wizos/adblockcore/internal/fingerprint"
	"github.com/wizos/adblockcore/internal/parser"
)

// EngineConfig is the engine's YAML-loadable tunable configuration, in the
// shape of the teacher's dnsfilter.Config (SPEC_FULL.md, "Configuration").
//
// FingerprintSize, PreserveRuleText and CosmeticCacheSize are loaded and
// written like the other fields but have no effect on the engine:
// fingerprints are always fingerprint.Size bytes, rule text is kept only
// when Engine.Parse is called with preserveRuleText set, and the cosmetic
// lookup cache has a fixed size.
type EngineConfig struct {
	FingerprintSize               int               `yaml:"fingerprint_size"`
	BloomSize                     datasize.ByteSize `yaml:"bloom_size"`
	BloomHashFuncs                int               `yaml:"bloom_hash_funcs"`
	ExceptionBloomSize            datasize.ByteSize `yaml:"exception_bloom_size"`
	ExceptionBloomFuncs           int               `yaml:"exception_bloom_hash_funcs"`
	MaxLineLength                 int               `yaml:"max_line_length"`
	PreserveRuleText              bool              `yaml:"preserve_rule_text"`
	EnableBadFingerprintDetection bool              `yaml:"enable_bad_fingerprint_detection"`
	CosmeticCacheSize             int               `yaml:"cosmetic_cache_size"`
}

// DefaultEngineConfig returns spec.md's documented defaults: N=6, an
// ~80,000-bit k=15 block Bloom filter, an ~20,000-bit k=10 exception Bloom
// filter, and a 2048-byte max line length.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FingerprintSize:     fingerprint.Size,
		BloomSize:           (80000 / 8) * datasize.B,
		BloomHashFuncs:      15,
		ExceptionBloomSize:  (20000 / 8) * datasize.B,
		ExceptionBloomFuncs: 10,
		MaxLineLength:       parser.MaxLineLength,
		PreserveRuleText:    false,
	}
}

// LoadEngineConfig reads and YAML-unmarshals an EngineConfig from path,
// starting from DefaultEngineConfig so an omitted field keeps its default
// rather than zeroing out, the same merge-over-defaults style as the
// teacher's own config-file loading.
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, err
	}
	cfg := DefaultEngineConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// WriteEngineConfig YAML-marshals cfg and writes it to path, for an
// operator to dump the effective configuration (including defaults) to
// disk for inspection or later editing.
func WriteEngineConfig(path string, cfg EngineConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// parserConfig translates an EngineConfig into the internal parser.Config
// the Parser actually builds its buckets from.
func (c EngineConfig) parserConfig() parser.Config {
	pc := parser.DefaultConfig()
	if c.FingerprintSize > 0 {
		pc.FingerprintSize = c.FingerprintSize
	}
	if c.BloomSize > 0 {
		pc.BlockBloomBits = c.BloomSize.Bytes() * 8
	}
	if c.BloomHashFuncs > 0 {
		pc.BlockBloomK = c.BloomHashFuncs
	}
	if c.ExceptionBloomSize > 0 {
		pc.ExceptionBloomBits = c.ExceptionBloomSize.Bytes() * 8
	}
	if c.ExceptionBloomFuncs > 0 {
		pc.ExceptionBloomK = c.ExceptionBloomFuncs
	}
	pc.PreserveRuleText = c.PreserveRuleText
	if c.MaxLineLength > 0 {
		pc.MaxLineLength = c.MaxLineLength
	}
	return pc
}
