package loader

import (
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "STEPGRAPH_")
	mapping map[string]string // Env var -> config path
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "STEPGRAPH_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		environ: os.Environ,
	}
}

// defaultEnvMapping returns the short aliases for common settings.
func defaultEnvMapping() map[string]string {
	return map[string]string{
		"STEPGRAPH_LOG_LEVEL":     "logging.level",
		"STEPGRAPH_PROMPT":        "shell.prompt",
		"STEPGRAPH_MEMORY_FORMAT": "shell.memoryFormat",
		"STEPGRAPH_MAX_STEPS":     "executor.maxSteps",
		"STEPGRAPH_WATCH":         "program.watch",
	}
}

// Load reads environment variables and returns a configuration map.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			// STEPGRAPH_EXECUTOR_MAX_STEPS -> executor.maxSteps
			if path, mapped = l.envToPath(name); !mapped {
				continue
			}
		}
		setByPath(config, path, parseValue(path, value))
	}

	return config, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// envToPath converts STEPGRAPH_SHELL_MEMORY_FORMAT to shell.memoryFormat.
// Names without both a section and a setting have no path; a bare section
// name would replace the whole section table.
func (l *EnvLoader) envToPath(env string) (string, bool) {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}

	section := strings.ToLower(parts[0])
	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if len(part) > 0 {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + setting, true
}

// stringSettings never get numeric or boolean coercion.
var stringSettings = map[string]bool{
	"logging.level":      true,
	"shell.prompt":       true,
	"shell.memoryFormat": true,
}

// parseValue attempts to parse the string value into an appropriate type.
func parseValue(path, s string) any {
	if s == "" || stringSettings[path] {
		return s
	}

	lower := strings.ToLower(s)
	if lower == "true" || lower == "yes" || lower == "on" {
		return true
	}
	if lower == "false" || lower == "no" || lower == "off" {
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only if it contains a decimal point to avoid misinterpreting ints
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = value
}
