package runner

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"code-intelligence.com/crashtriage/util/stringutil"
)

var (
	asanOverrides = map[string]string{
		// Stop at the first error, the first report is the one we
		// classify
		"abort_on_error": "1",
		"symbolize":      "1",
		"detect_leaks":   "0",
	}
	ubsanOverrides = map[string]string{
		// Without a stack trace there is no top frame to report
		"print_stacktrace": "1",
	}
)

// SanitizerEnvironment returns a copy of env in which ASAN_OPTIONS and
// UBSAN_OPTIONS carry the options needed for triage. The user-supplied
// option strings ("key=value:key=value") are applied last, so they win.
// Options already set in env which are not overridden are kept.
func SanitizerEnvironment(env []string, asanOptions, ubsanOptions string) ([]string, error) {
	env = append([]string(nil), env...)

	env, err := setSanitizerOptions(env, "ASAN_OPTIONS", asanOverrides, asanOptions)
	if err != nil {
		return nil, err
	}
	return setSanitizerOptions(env, "UBSAN_OPTIONS", ubsanOverrides, ubsanOptions)
}

func setSanitizerOptions(env []string, key string, overrides map[string]string, userOptions string) ([]string, error) {
	userOverrides, err := ParseSanitizerOptions(userOptions)
	if err != nil {
		return nil, err
	}
	options := Getenv(env, key)
	options = SetSanitizerOptions(options, nil, overrides)
	options = SetSanitizerOptions(options, nil, userOverrides)
	return Setenv(env, key, options)
}

// SetSanitizerOptions sets defaults which are not set yet and replaces
// the values of all overrides in a colon-separated option string.
func SetSanitizerOptions(existingOptionsStr string, defaults map[string]string, overrides map[string]string) string {
	options := strings.Split(existingOptionsStr, ":")

	for _, key := range sortedKeys(defaults) {
		options = setDefaultIfNotSetAlready(options, key, defaults[key])
	}

	for _, key := range sortedKeys(overrides) {
		options = overrideOption(options, key, overrides[key])
	}

	return stringutil.JoinNonEmpty(options, ":")
}

func sortedKeys(m map[string]string) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// ParseSanitizerOptions parses a colon-separated "key=value" list.
func ParseSanitizerOptions(s string) (map[string]string, error) {
	res := map[string]string{}
	for _, option := range stringutil.NonEmpty(strings.Split(s, ":")) {
		key, val, found := strings.Cut(option, "=")
		if !found || key == "" {
			return nil, errors.Errorf("Invalid sanitizer option, must be of the form key=value: %s", option)
		}
		res[key] = val
	}
	return res, nil
}

func setDefaultIfNotSetAlready(options []string, key, value string) []string {
	for _, option := range options {
		if strings.HasPrefix(option, key+"=") {
			// The option is already set
			return options
		}
	}
	return append(options, key+"="+value)
}

func overrideOption(options []string, key, value string) []string {
	replaced := false
	for i, option := range options {
		// The sanitizer runtime uses the last occurrence, so all of
		// them are replaced
		if strings.HasPrefix(option, key+"=") {
			options[i] = key + "=" + value
			replaced = true
		}
	}
	if replaced {
		return options
	}
	return append(options, key+"="+value)
}

// Getenv is like os.Getenv but uses the specified environment instead
// of the current process environment.
func Getenv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix)
		}
	}
	return ""
}

// Setenv is like os.Setenv but uses the specified environment instead
// of the current process environment.
func Setenv(env []string, key, value string) ([]string, error) {
	if key == "" || strings.ContainsAny(key, "=\x00") {
		return nil, errors.Errorf("Invalid environment variable key: %q", key)
	}
	if strings.ContainsRune(value, '\x00') {
		return nil, errors.Errorf("Invalid environment variable value: %q", value)
	}

	prefix := key + "="
	res := make([]string, 0, len(env)+1)
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			res = append(res, e)
		}
	}
	return append(res, prefix+value), nil
}
