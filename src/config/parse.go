package config

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sofmeright/lintcascade/src/rules"
	"github.com/sofmeright/lintcascade/src/version"
)

// Recognized top-level keys.
const (
	KeyDisabledRules          = "disabled_rules"
	KeyOptInRules             = "opt_in_rules"
	KeyOnlyRules              = "only_rules"
	KeyWhitelistRules         = "whitelist_rules"
	KeyIncluded               = "included"
	KeyExcluded               = "excluded"
	KeyWarningThreshold       = "warning_threshold"
	KeyReporter               = "reporter"
	KeyCachePath              = "cache_path"
	KeyIndentation            = "indentation"
	KeyParentConfig           = "parent_config"
	KeyChildConfig            = "child_config"
	KeyRemoteTimeout          = "remote_timeout"
	KeyRemoteTimeoutIfCached  = "remote_timeout_if_cached"
	KeyStrict                 = "strict"
	KeyAllowZeroLintableFiles = "allow_zero_lintable_files"
	KeyRequiredVersion        = "required_version"
)

// AllRules in opt_in_rules enables every cataloged rule.
const AllRules = "all"

// Remote timeouts used when a file does not declare its own.
const (
	DefaultRemoteTimeout         = 2 * time.Second
	DefaultRemoteTimeoutIfCached = time.Second
)

// File is a parsed configuration node together with the references it
// declares. References are kept verbatim; the resolver interprets them.
type File struct {
	Config   *Config
	Parent   string
	Children []string

	RemoteTimeout         time.Duration
	RemoteTimeoutIfCached time.Duration
	RequiredVersion       string
}

// References returns the parent (if any) followed by the children.
func (f *File) References() []string {
	var refs []string
	if f.Parent != "" {
		refs = append(refs, f.Parent)
	}
	return append(refs, f.Children...)
}

// ParseOptions controls Parse.
type ParseOptions struct {
	Catalog *rules.Catalog
	// Origin is the identity of the parsed text, used in messages.
	Origin string
	// RootDir anchors the node's path filters.
	RootDir string
	Sink    Sink
	// Version is the running tool version checked against required_version;
	// empty means version.Version.
	Version string
}

// Parse interprets a decoded key/value tree. Recoverable problems are sent
// to opts.Sink; the returned error is always a *Error.
func Parse(tree map[string]any, opts ParseOptions) (*File, error) {
	p := &parser{opts: opts, seen: map[string]string{}}
	if p.opts.Sink == nil {
		p.opts.Sink = Discard
	}
	return p.parse(tree)
}

type parser struct {
	opts ParseOptions
	// seen maps a canonical rule ID to the key that configured it.
	seen map[string]string
}

func (p *parser) parse(tree map[string]any) (*File, error) {
	cfg := &Config{
		Instances: map[string]rules.Instance{},
		Origin:    p.opts.Origin,
		RootDir:   p.opts.RootDir,
	}
	if p.opts.Origin != "" {
		cfg.Origins = []string{p.opts.Origin}
	}
	file := &File{Config: cfg}

	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		disabled, optIn, only rules.IDSet
		hasOnly, allOptIn     bool
	)

	for _, key := range keys {
		value := tree[key]
		var err error
		switch key {
		case KeyDisabledRules:
			disabled, err = p.idList(key, value)
		case KeyOptInRules:
			var ids rules.IDSet
			ids, err = p.idList(key, value)
			if ids.Has(AllRules) {
				allOptIn = true
				delete(ids, AllRules)
			}
			optIn = ids
		case KeyWhitelistRules:
			warnf(p.opts.Sink, WarnDeprecatedKey, p.opts.Origin, "%s is deprecated, use %s", KeyWhitelistRules, KeyOnlyRules)
			if _, dup := tree[KeyOnlyRules]; dup {
				err = newError(ErrConflictingSelection, p.opts.Origin, nil, "%s and %s are both declared", KeyOnlyRules, KeyWhitelistRules)
				break
			}
			fallthrough
		case KeyOnlyRules:
			hasOnly = true
			only, err = p.idList(key, value)
		case KeyIncluded:
			cfg.Included, err = p.stringList(key, value)
		case KeyExcluded:
			cfg.Excluded, err = p.stringList(key, value)
		case KeyWarningThreshold:
			var n int
			n, err = p.integer(key, value)
			cfg.WarningThreshold = &n
		case KeyReporter:
			cfg.Reporter, err = p.str(key, value)
		case KeyCachePath:
			cfg.CachePath, err = p.str(key, value)
		case KeyIndentation:
			cfg.Indentation, err = p.indentation(value)
		case KeyParentConfig:
			file.Parent, err = p.str(key, value)
		case KeyChildConfig:
			file.Children, err = p.stringList(key, value)
		case KeyRemoteTimeout:
			file.RemoteTimeout, err = p.seconds(key, value)
		case KeyRemoteTimeoutIfCached:
			file.RemoteTimeoutIfCached, err = p.seconds(key, value)
		case KeyStrict:
			cfg.Strict, err = p.boolean(key, value)
		case KeyAllowZeroLintableFiles:
			cfg.AllowZeroLintableFiles, err = p.boolean(key, value)
		case KeyRequiredVersion:
			file.RequiredVersion, err = p.str(key, value)
			if err == nil {
				err = p.checkVersion(file.RequiredVersion)
			}
		default:
			err = p.ruleConfig(cfg, key, value)
		}
		if err != nil {
			return nil, err
		}
	}

	if hasOnly && (disabled != nil || optIn != nil || allOptIn) {
		return nil, newError(ErrConflictingSelection, p.opts.Origin, nil,
			"%s cannot be combined with %s or %s", KeyOnlyRules, KeyDisabledRules, KeyOptInRules)
	}

	switch {
	case hasOnly:
		cfg.Selection = rules.OnlySelection(only)
	case allOptIn && len(disabled) == 0:
		cfg.Selection = rules.AllEnabledSelection()
	case allOptIn:
		everything := rules.NewIDSet(p.opts.Catalog.OptInIDs()...)
		cfg.Selection = rules.DefaultSelection(disabled, everything.Minus(disabled))
	default:
		cfg.Selection = rules.DefaultSelection(disabled, optIn)
	}

	if file.RemoteTimeout == 0 {
		file.RemoteTimeout = DefaultRemoteTimeout
	}
	if file.RemoteTimeoutIfCached == 0 {
		file.RemoteTimeoutIfCached = DefaultRemoteTimeoutIfCached
	}
	return file, nil
}

// ruleConfig handles a key that is not a recognized setting: a rule ID, a
// rule alias or an unknown key.
func (p *parser) ruleConfig(cfg *Config, key string, value any) error {
	id, ok := p.opts.Catalog.Canonical(key)
	if !ok {
		warnf(p.opts.Sink, WarnUnknownKey, p.opts.Origin, "unknown configuration key %q", key)
		return nil
	}
	if prev, dup := p.seen[id]; dup {
		return newError(ErrDuplicateRuleConfig, p.opts.Origin, nil, "rule %s is configured by both %q and %q", id, prev, key)
	}
	p.seen[id] = key
	if p.opts.Catalog.IsAlias(key) {
		warnf(p.opts.Sink, WarnDeprecatedKey, p.opts.Origin, "%q is an alias of %q", key, id)
	}

	inst, err := p.opts.Catalog.Instantiate(id, value)
	if err != nil {
		var optErr *rules.OptionsError
		if !errors.As(err, &optErr) {
			return newError(ErrRuleConfig, p.opts.Origin, err, "rule %s", id)
		}
		warnf(p.opts.Sink, WarnRuleConfig, p.opts.Origin, "%v; falling back to defaults", optErr)
	}
	cfg.Instances[id] = inst
	return nil
}

func (p *parser) idList(key string, value any) (rules.IDSet, error) {
	raw, err := p.stringList(key, value)
	if err != nil {
		return nil, err
	}
	ids := rules.IDSet{}
	for _, s := range raw {
		id := s
		if canonical, ok := p.opts.Catalog.Canonical(s); ok {
			id = canonical
		}
		if ids.Has(id) {
			warnf(p.opts.Sink, WarnDuplicateRule, p.opts.Origin, "%s lists %s more than once", key, id)
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (p *parser) typeError(key string, want string, value any) *Error {
	return newError(ErrParse, p.opts.Origin, nil, "%s: expected %s, got %T", key, want, value)
}

func (p *parser) stringList(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, p.typeError(key, "a list of strings", item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return append([]string(nil), v...), nil
	}
	return nil, p.typeError(key, "a string or a list of strings", value)
}

func (p *parser) str(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", p.typeError(key, "a string", value)
	}
	return s, nil
}

func (p *parser) integer(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, p.typeError(key, "an integer", value)
}

func (p *parser) boolean(key string, value any) (*bool, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, p.typeError(key, "a boolean", value)
	}
	return &b, nil
}

func (p *parser) seconds(key string, value any) (time.Duration, error) {
	var secs float64
	switch v := value.(type) {
	case int:
		secs = float64(v)
	case int64:
		secs = float64(v)
	case uint64:
		secs = float64(v)
	case float64:
		secs = v
	default:
		return 0, p.typeError(key, "a number of seconds", value)
	}
	if secs <= 0 {
		return 0, newError(ErrParse, p.opts.Origin, nil, "%s must be positive", key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (p *parser) indentation(value any) (Indentation, error) {
	if s, ok := value.(string); ok {
		switch strings.ToLower(s) {
		case "tab", "tabs":
			return TabIndentation(), nil
		}
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return SpaceIndentation(n), nil
		}
		return Indentation{}, newError(ErrParse, p.opts.Origin, nil, "%s: unrecognized value %q", KeyIndentation, s)
	}
	n, err := p.integer(KeyIndentation, value)
	if err != nil {
		return Indentation{}, err
	}
	if n <= 0 {
		return Indentation{}, newError(ErrParse, p.opts.Origin, nil, "%s must be positive", KeyIndentation)
	}
	return SpaceIndentation(n), nil
}

func (p *parser) checkVersion(constraint string) error {
	running := p.opts.Version
	if running == "" {
		running = version.Version
	}
	ok, err := version.Satisfies(running, constraint)
	if err != nil {
		return newError(ErrParse, p.opts.Origin, err, "%s", KeyRequiredVersion)
	}
	if !ok {
		return newError(ErrVersion, p.opts.Origin, nil, "running %s, configuration requires %s", running, constraint)
	}
	return nil
}
