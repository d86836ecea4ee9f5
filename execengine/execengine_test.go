package execengine

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/agentrt"
	"kaizen/entrypoint"
)

type counterAgent struct {
	Counter int
}

func (c *counterAgent) Run(input string) (string, error) {
	c.Counter++
	return input + "!", nil
}

func (c *counterAgent) RunAsync(input string) <-chan agentrt.AsyncResult {
	ch := make(chan agentrt.AsyncResult, 1)
	go func() {
		c.Counter++
		ch <- agentrt.AsyncResult{Value: input + "-async"}
	}()
	return ch
}

func resolvedFor(t *testing.T, instance any, method string) *entrypoint.Resolved {
	t.Helper()
	v := reflect.ValueOf(instance)
	m := v.MethodByName(method)
	require.True(t, m.IsValid())
	return &entrypoint.Resolved{Instance: v, Callable: m, IsMethod: true}
}

func TestExecute_SyncMethod_TracksAttribute(t *testing.T) {
	agent := &counterAgent{}
	resolved := resolvedFor(t, agent, "Run")

	engine := New()
	res, err := engine.Execute(context.Background(), resolved, []any{"hi"}, []string{"Counter"})

	require.NoError(t, err)
	assert.Equal(t, "hi!", res.ReturnValue)
	assert.Equal(t, "1", res.TrackedValues["Counter"])
}

func TestExecute_Async_DrivenToCompletion(t *testing.T) {
	agent := &counterAgent{}
	resolved := resolvedFor(t, agent, "RunAsync")

	engine := New()
	res, err := engine.Execute(context.Background(), resolved, []any{"hi"}, []string{"Counter"})

	require.NoError(t, err)
	assert.Equal(t, "hi-async", res.ReturnValue)
	assert.Equal(t, "1", res.TrackedValues["Counter"])
}

func TestExecute_Async_CancelledContext(t *testing.T) {
	agent := &counterAgent{}
	v := reflect.ValueOf(agent)
	m := v.MethodByName("RunAsync")
	resolved := &entrypoint.Resolved{Instance: v, Callable: m, IsMethod: true}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	engine := New()
	_, err := engine.Execute(ctx, resolved, []any{"hi"}, nil)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindTimeout, execErr.Kind)
}

func TestExecute_WrongArgCount(t *testing.T) {
	agent := &counterAgent{}
	resolved := resolvedFor(t, agent, "Run")

	engine := New()
	_, err := engine.Execute(context.Background(), resolved, []any{"a", "b"}, nil)
	require.Error(t, err)

	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindType, execErr.Kind)
}

func TestCheckRequiredDependencies(t *testing.T) {
	engine := New()
	resolved := &entrypoint.Resolved{Capability: []string{"numpy-ish"}}

	assert.NoError(t, engine.CheckRequiredDependencies([]string{"numpy-ish"}, resolved))

	err := engine.CheckRequiredDependencies([]string{"missing-dep"}, resolved)
	require.Error(t, err)
	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, KindBuild, execErr.Kind)
}
