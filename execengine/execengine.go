// Package execengine invokes a resolved entry point with materialized
// arguments, handling both synchronous and asynchronous callables
// uniformly and capturing tracked instance attributes.
package execengine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"kaizen/agentrt"
	"kaizen/entrypoint"
)

// Kind enumerates execution failure categories.
type Kind string

const (
	KindImport    Kind = "import"
	KindAttribute Kind = "attribute"
	KindType      Kind = "type"
	KindTimeout   Kind = "timeout"
	KindUserRaise Kind = "user_raised"
	KindBuild     Kind = "build"
)

// Error is the execution engine's error kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("execengine: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Result is what the engine hands the evaluator.
type Result struct {
	ReturnValue   any
	TrackedValues map[string]string
	DurationMs    int64
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Engine invokes resolved entry points.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// CheckRequiredDependencies enforces "missing required
// packages surface a fatal error before any test runs": required names
// not present in the plugin's advertised capability set fail fast.
func (e *Engine) CheckRequiredDependencies(required []string, resolved *entrypoint.Resolved) error {
	have := make(map[string]bool, len(resolved.Capability))
	for _, c := range resolved.Capability {
		have[c] = true
	}
	for _, dep := range required {
		if !have[dep] {
			return &Error{Kind: KindBuild, Err: fmt.Errorf("required dependency %q was not compiled into the agent plugin", dep)}
		}
	}
	return nil
}

// Execute invokes resolved.Callable with args, driving async results to
// completion and capturing trackedVars from the instance afterward.
func (e *Engine) Execute(ctx context.Context, resolved *entrypoint.Resolved, args []any, trackedVars []string) (res *Result, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUserRaise, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	callable := resolved.Callable
	callType := callable.Type()

	in, buildErr := e.buildCallArgs(ctx, callType, args)
	if buildErr != nil {
		return nil, buildErr
	}

	out := callable.Call(in)
	duration := time.Since(start).Milliseconds()

	returnValue, asyncErr := e.resolveReturn(ctx, out)
	if asyncErr != nil {
		return nil, asyncErr
	}

	tracked := e.captureTracked(resolved, trackedVars)

	return &Result{
		ReturnValue:   returnValue,
		TrackedValues: tracked,
		DurationMs:    duration,
	}, nil
}

func (e *Engine) buildCallArgs(ctx context.Context, callType reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := callType.NumIn()
	start := 0
	if numIn > 0 && callType.In(0) == contextType {
		start = 1
	}

	expected := numIn - start
	if expected != len(args) {
		return nil, &Error{Kind: KindType, Err: fmt.Errorf("entry point expects %d argument(s), got %d", expected, len(args))}
	}

	in := make([]reflect.Value, 0, numIn)
	if start == 1 {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, a := range args {
		paramType := callType.In(start + i)
		v := reflect.ValueOf(a)
		if !v.IsValid() {
			v = reflect.Zero(paramType)
		} else if v.Type() != paramType {
			if v.Type().ConvertibleTo(paramType) {
				v = v.Convert(paramType)
			} else {
				return nil, &Error{Kind: KindType, Err: fmt.Errorf("argument %d: %s not assignable to %s", i, v.Type(), paramType)}
			}
		}
		in = append(in, v)
	}
	return in, nil
}

var asyncResultType = reflect.TypeOf(agentrt.AsyncResult{})

// resolveReturn drives an async channel return to completion, or unwraps
// a plain (value, error) / value return.
func (e *Engine) resolveReturn(ctx context.Context, out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}

	last := out[len(out)-1]
	if last.Kind() == reflect.Chan && last.Type().Elem() == asyncResultType {
		return e.drainAsync(ctx, last)
	}

	// Conventional (value, error) return.
	if len(out) >= 2 {
		if errVal, ok := out[len(out)-1].Interface().(error); ok {
			if errVal != nil {
				return nil, &Error{Kind: KindUserRaise, Err: errVal}
			}
			if len(out) == 2 {
				return out[0].Interface(), nil
			}
		}
	}

	if len(out) == 1 {
		return out[0].Interface(), nil
	}

	values := make([]any, len(out))
	for i, v := range out {
		values[i] = v.Interface()
	}
	return values, nil
}

func (e *Engine) drainAsync(ctx context.Context, ch reflect.Value) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindTimeout, Err: err}
	}
	selectCases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: ch},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
	}
	chosen, recv, _ := reflect.Select(selectCases)
	if chosen == 1 {
		return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
	}
	result := recv.Interface().(agentrt.AsyncResult)
	if result.Err != nil {
		return nil, &Error{Kind: KindUserRaise, Err: result.Err}
	}
	return result.Value, nil
}

// captureTracked reads each named public attribute off the post-call
// instance. Free-function
// agents have no instance, so tracked variables reduce to the empty map.
func (e *Engine) captureTracked(resolved *entrypoint.Resolved, names []string) map[string]string {
	tracked := make(map[string]string, len(names))
	if !resolved.IsMethod || !resolved.Instance.IsValid() {
		return tracked
	}

	instance := resolved.Instance
	if instance.Kind() == reflect.Ptr {
		instance = instance.Elem()
	}
	if instance.Kind() != reflect.Struct {
		return tracked
	}

	for _, name := range names {
		field := instance.FieldByName(name)
		if !field.IsValid() {
			continue
		}
		tracked[name] = fmt.Sprintf("%v", field.Interface())
	}
	return tracked
}
