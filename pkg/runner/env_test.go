package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizerEnvironment(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"ASAN_OPTIONS=abort_on_error=0:allocator_may_return_null=1",
	}

	res, err := SanitizerEnvironment(env, "detect_leaks=1:symbolize=0", "halt_on_error=1")
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin", Getenv(res, "PATH"))
	assert.Equal(t,
		"abort_on_error=1:allocator_may_return_null=1:detect_leaks=1:symbolize=0",
		Getenv(res, "ASAN_OPTIONS"))
	assert.Equal(t, "print_stacktrace=1:halt_on_error=1", Getenv(res, "UBSAN_OPTIONS"))
	// The input environment is not modified
	assert.Equal(t, "abort_on_error=0:allocator_may_return_null=1", Getenv(env, "ASAN_OPTIONS"))
}

func TestSanitizerEnvironment_InvalidOption(t *testing.T) {
	_, err := SanitizerEnvironment(nil, "detect_leaks", "")
	require.Error(t, err)
}

func TestSetSanitizerOptions(t *testing.T) {
	res := SetSanitizerOptions("a=1:b=2", map[string]string{"a": "5", "c": "3"}, map[string]string{"b": "4"})
	assert.Equal(t, "a=1:b=4:c=3", res)

	res = SetSanitizerOptions("", nil, map[string]string{"x": "1"})
	assert.Equal(t, "x=1", res)
}

func TestSetenv(t *testing.T) {
	env, err := Setenv([]string{"A=1", "B=2", "A=3"}, "A", "4")
	require.NoError(t, err)
	assert.Equal(t, []string{"B=2", "A=4"}, env)

	_, err = Setenv(nil, "A=B", "1")
	require.Error(t, err)
}
