// Package config loads hiertext settings from defaults, a config file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/asynkron/hiertext/internal/logging"
	"github.com/asynkron/hiertext/internal/source"
	"github.com/asynkron/hiertext/pkg/docdiff"
	"github.com/asynkron/hiertext/pkg/equiv"
	"github.com/asynkron/hiertext/pkg/hunk"
	"github.com/asynkron/hiertext/pkg/tokenize"
	"github.com/asynkron/hiertext/pkg/tree"
	"github.com/asynkron/hiertext/pkg/treediff"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HIERTEXT"

// Config holds all settings of a run.
// Priority: flags > environment > config file > defaults.
type Config struct {
	Diff  DiffConfig  `mapstructure:"diff"`
	Rules RulesConfig `mapstructure:"rules"`
	Run   RunConfig   `mapstructure:"run"`
	Log   LogConfig   `mapstructure:"log"`
}

// DiffConfig holds document and hierarchy comparison settings.
type DiffConfig struct {
	Format   string `mapstructure:"format"`
	Context  int    `mapstructure:"context"`
	Mode     string `mapstructure:"mode"`
	Language string `mapstructure:"language"`

	// FullRanges prints one-line hunk ranges in their two-number form.
	FullRanges bool `mapstructure:"full_ranges"`

	IgnoreBlockComments bool `mapstructure:"ignore_block_comments"`
	IgnoreDocComments   bool `mapstructure:"ignore_doc_comments"`
	IgnoreLineComments  bool `mapstructure:"ignore_line_comments"`

	Whitespace      string `mapstructure:"whitespace"`
	IgnoreCase      bool   `mapstructure:"ignore_case"`
	ReportUnchanged bool   `mapstructure:"report_unchanged"`
	// Added and Deleted name the policy for one-sided nodes: report,
	// compare-with-empty or ignore.
	Added   string `mapstructure:"added"`
	Deleted string `mapstructure:"deleted"`

	ExpandArchives bool     `mapstructure:"expand_archives"`
	Decompress     bool     `mapstructure:"decompress"`
	Charset        string   `mapstructure:"charset"`
	Exclude        []string `mapstructure:"exclude"`
}

// RuleConfig is one equivalence or ignore rule.
type RuleConfig struct {
	Path    string `mapstructure:"path"`
	Pattern string `mapstructure:"pattern"`
}

// RulesConfig holds the line and path equivalence rules.
type RulesConfig struct {
	Equivalence []RuleConfig `mapstructure:"equivalence"`
	Ignore      []RuleConfig `mapstructure:"ignore"`
	// Paths rewrite node paths before hierarchies are aligned.
	Paths []string `mapstructure:"paths"`
}

// RunConfig holds traversal settings.
type RunConfig struct {
	Sequential bool `mapstructure:"sequential"`
	Workers    int  `mapstructure:"workers"`
	KeepGoing  bool `mapstructure:"keep_going"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flag names onto configuration keys. Flags
// missing from a flag set are skipped.
var flagKeys = map[string]string{
	"format":                "diff.format",
	"context":               "diff.context",
	"full-ranges":           "diff.full_ranges",
	"mode":                  "diff.mode",
	"language":              "diff.language",
	"ignore-block-comments": "diff.ignore_block_comments",
	"ignore-doc-comments":   "diff.ignore_doc_comments",
	"ignore-line-comments":  "diff.ignore_line_comments",
	"whitespace":            "diff.whitespace",
	"ignore-case":           "diff.ignore_case",
	"report-unchanged":      "diff.report_unchanged",
	"added":                 "diff.added",
	"deleted":               "diff.deleted",
	"expand-archives":       "diff.expand_archives",
	"decompress":            "diff.decompress",
	"charset":               "diff.charset",
	"exclude":               "diff.exclude",
	"path-rule":             "rules.paths",
	"sequential":            "run.sequential",
	"workers":               "run.workers",
	"keep-going":            "run.keep_going",
	"log-level":             "log.level",
	"log-format":            "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("diff.format", "normal")
	v.SetDefault("diff.context", hunk.DefaultContext)
	v.SetDefault("diff.full_ranges", false)
	v.SetDefault("diff.mode", "lines")
	v.SetDefault("diff.language", "")
	v.SetDefault("diff.ignore_block_comments", false)
	v.SetDefault("diff.ignore_doc_comments", false)
	v.SetDefault("diff.ignore_line_comments", false)
	v.SetDefault("diff.whitespace", "exact")
	v.SetDefault("diff.ignore_case", false)
	v.SetDefault("diff.report_unchanged", false)
	v.SetDefault("diff.added", "report")
	v.SetDefault("diff.deleted", "report")
	v.SetDefault("diff.expand_archives", true)
	v.SetDefault("diff.decompress", true)
	v.SetDefault("diff.charset", "")
	v.SetDefault("diff.exclude", []string{})

	v.SetDefault("run.sequential", false)
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.keep_going", false)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration. file may be empty; flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
		if raw := v.Get("rules"); raw != nil {
			if err := ValidateRules(raw); err != nil {
				return nil, fmt.Errorf("config file %s: %w", file, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SourceOptions returns how archives and compressed streams are exposed.
func (c *Config) SourceOptions() source.Options {
	return source.Options{ExpandArchives: c.Diff.ExpandArchives, Decompress: c.Diff.Decompress}
}

// Formatter returns the configured output grammar.
func (c *Config) Formatter() (hunk.Formatter, error) {
	format, err := hunk.ParseFormat(c.Diff.Format)
	if err != nil {
		return hunk.Formatter{}, err
	}
	if c.Diff.Context < 0 {
		return hunk.Formatter{}, fmt.Errorf("context must not be negative, got %d", c.Diff.Context)
	}
	return hunk.Formatter{Format: format, Context: c.Diff.Context, FullRanges: c.Diff.FullRanges}, nil
}

// TreeOptions compiles the traversal settings. logger receives per-node
// failures under keep-going.
func (c *Config) TreeOptions(logger logging.Logger) (tree.Options, error) {
	opts := tree.Options{
		Workers:    c.Run.Workers,
		Sequential: c.Run.Sequential,
		KeepGoing:  c.Run.KeepGoing,
		Logger:     logger,
	}
	if c.Run.Workers < 0 {
		return opts, fmt.Errorf("workers must not be negative, got %d", c.Run.Workers)
	}
	rewriter, err := equiv.NewPathRewriter(c.Rules.Paths...)
	if err != nil {
		return opts, err
	}
	opts.Rewriter = rewriter
	exclude, err := tree.ExcludeGlobs(c.Diff.Exclude...)
	if err != nil {
		return opts, fmt.Errorf("exclude: %w", err)
	}
	opts.Exclude = exclude
	return opts, nil
}

// DocumentOptions compiles the document pipeline settings.
func (c *Config) DocumentOptions() (docdiff.Options, error) {
	var opts docdiff.Options
	mode, err := tokenize.ParseMode(c.Diff.Mode)
	if err != nil {
		return opts, err
	}
	opts.Tokenize = tokenize.Options{
		Mode:                mode,
		Language:            c.Diff.Language,
		IgnoreBlockComments: c.Diff.IgnoreBlockComments,
		IgnoreDocComments:   c.Diff.IgnoreDocComments,
		IgnoreLineComments:  c.Diff.IgnoreLineComments,
	}
	ws, err := equiv.ParseWhitespace(c.Diff.Whitespace)
	if err != nil {
		return opts, err
	}
	equivalence, err := compileRules(c.Rules.Equivalence)
	if err != nil {
		return opts, fmt.Errorf("equivalence rule: %w", err)
	}
	ignore, err := compileRules(c.Rules.Ignore)
	if err != nil {
		return opts, fmt.Errorf("ignore rule: %w", err)
	}
	opts.Normalizer = equiv.Normalizer{Rules: equivalence, Whitespace: ws, IgnoreCase: c.Diff.IgnoreCase}
	opts.Ignore = equiv.IgnoreFilter{Rules: ignore}
	return opts, nil
}

func compileRules(rules []RuleConfig) ([]equiv.Rule, error) {
	out := make([]equiv.Rule, 0, len(rules))
	for _, r := range rules {
		rule, err := equiv.NewRule(r.Path, r.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// DiffOptions compiles everything a hierarchy comparison needs. Reporter
// and Metrics are left for the caller.
func (c *Config) DiffOptions(logger logging.Logger) (treediff.Options, error) {
	var opts treediff.Options
	var err error
	if opts.Tree, err = c.TreeOptions(logger); err != nil {
		return opts, err
	}
	if opts.Document, err = c.DocumentOptions(); err != nil {
		return opts, err
	}
	if opts.Formatter, err = c.Formatter(); err != nil {
		return opts, err
	}
	if opts.Added, err = treediff.ParsePolicy(c.Diff.Added); err != nil {
		return opts, err
	}
	if opts.Deleted, err = treediff.ParsePolicy(c.Diff.Deleted); err != nil {
		return opts, err
	}
	opts.ReportUnchanged = c.Diff.ReportUnchanged
	opts.Charset = c.Diff.Charset
	return opts, nil
}

// Logger builds the diagnostic logger. Console output goes through zap's
// development encoder, json through its production encoder and plain
// through a StdLogger writing to w.
func (c *Config) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.Log.Format, "plain") {
		return logging.NewStdLogger(level, w), nil
	}
	logger, err := logging.NewZapLogger(level, strings.ToLower(c.Log.Format), w)
	if err != nil {
		return nil, err
	}
	return logger, nil
}
