package entrypoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: KindModuleNotFound, Message: "foo.so", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "module_not_found")
	assert.Contains(t, err.Error(), "foo.so")
}

func TestError_WithoutWrappedErr(t *testing.T) {
	err := &Error{Kind: KindNotCallable, Message: "Foo.Bar is not a function"}
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "not_callable")
}

func TestResolve_MissingPluginFile(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve("/nonexistent/path/to/agent.so", AgentEntryPoint{Method: "Run"})

	require := assert.New(t)
	require.Error(err)

	var resolveErr *Error
	require.True(errors.As(err, &resolveErr))
	require.Equal(KindModuleNotFound, resolveErr.Kind)
}

func TestClassRegistry_MissingPluginFile(t *testing.T) {
	r := NewResolver()
	_, err := r.ClassRegistry("/nonexistent/path/to/agent.so", []string{"Widget"})

	var resolveErr *Error
	require := assert.New(t)
	require.Error(err)
	require.True(errors.As(err, &resolveErr))
	require.Equal(KindModuleNotFound, resolveErr.Kind)
}

func TestResolve_NeitherClassNorMethod(t *testing.T) {
	// Without a real plugin this cannot reach the "entry point names
	// neither a usable class nor a method" branch: resolution against a
	// missing file returns ModuleNotFound first, so this only asserts that
	// an entry point with neither class nor method is rejected.
	r := NewResolver()
	_, err := r.Resolve("/nonexistent/path/to/agent.so", AgentEntryPoint{})
	assert.Error(t, err)
}
