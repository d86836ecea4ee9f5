// Package entrypoint resolves a configured agent entry point against a
// compiled Go plugin loaded at run start.
//
// Go plugins expose symbols by name only, with no class hierarchy to
// walk, so "class" resolution uses a constructor-function convention: a
// class named Foo is exposed as a zero-argument exported function
// `NewFoo() any` returning a pointer to the instance. Method resolution
// then uses reflect against that instance, or against a free function
// symbol when no class is given.
package entrypoint

import (
	"fmt"
	"plugin"
	"reflect"

	"kaizen/agentrt"
	"kaizen/materialize"
)

// Kind enumerates resolver failure categories.
type Kind string

const (
	KindModuleNotFound Kind = "module_not_found"
	KindSymbolNotFound Kind = "symbol_not_found"
	KindNotCallable    Kind = "not_callable"
)

// Error is the resolver's error kind, checked with errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entrypoint: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("entrypoint: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AgentEntryPoint is the declarative description of the callable under
// test.
type AgentEntryPoint struct {
	Module             string
	Class              string
	Method             string
	FallbackToFunction bool
}

// Resolved is a callable ready for invocation by the execution engine.
// Instance is the zero Value when the entry point is a free function.
type Resolved struct {
	Instance   reflect.Value
	Callable   reflect.Value
	IsMethod   bool
	Capability []string // optional, from the plugin's Capabilities() symbol
}

// Resolver loads plugins from a module search path and resolves entry
// points against them. Resolution runs the plugin's package init()
// functions (via plugin.Open) and, for a class entry point, the class's
// NewFoo constructor; it never calls the resolved method itself.
type Resolver struct {
	cache map[string]*plugin.Plugin
}

// NewResolver creates a Resolver with an empty plugin cache.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*plugin.Plugin)}
}

// Resolve loads the plugin at modulePath (a .so path) and resolves the
// entry point described by ep; ep.Module is not consulted.
func (r *Resolver) Resolve(modulePath string, ep AgentEntryPoint) (*Resolved, error) {
	plug, err := r.load(modulePath)
	if err != nil {
		return nil, &Error{Kind: KindModuleNotFound, Message: modulePath, Err: err}
	}

	resolved := &Resolved{}
	if caps, err := plug.Lookup(capabilitiesSymbolName()); err == nil {
		if fn, ok := caps.(func() []string); ok {
			resolved.Capability = fn()
		}
	}

	if ep.Class != "" {
		instance, callable, err := r.resolveClass(plug, ep)
		if err == nil {
			resolved.Instance = instance
			resolved.Callable = callable
			resolved.IsMethod = true
			return resolved, nil
		}
		if !ep.FallbackToFunction || ep.Method == "" {
			return nil, err
		}
		// fall through to free-function resolution
	}

	if ep.Method == "" {
		return nil, &Error{Kind: KindSymbolNotFound, Message: "entry point names neither a usable class nor a method"}
	}

	callable, err := r.resolveFunction(plug, ep.Method)
	if err != nil {
		return nil, err
	}
	resolved.Callable = callable
	resolved.IsMethod = false
	return resolved, nil
}

func (r *Resolver) load(modulePath string) (*plugin.Plugin, error) {
	if plug, ok := r.cache[modulePath]; ok {
		return plug, nil
	}
	plug, err := plugin.Open(modulePath)
	if err != nil {
		return nil, err
	}
	r.cache[modulePath] = plug
	return plug, nil
}

func (r *Resolver) resolveClass(plug *plugin.Plugin, ep AgentEntryPoint) (reflect.Value, reflect.Value, error) {
	ctorName := "New" + ep.Class
	sym, err := plug.Lookup(ctorName)
	if err != nil {
		return reflect.Value{}, reflect.Value{}, &Error{Kind: KindSymbolNotFound, Message: ctorName, Err: err}
	}

	ctor := reflect.ValueOf(sym)
	if ctor.Kind() != reflect.Func || ctor.Type().NumIn() != 0 || ctor.Type().NumOut() == 0 {
		return reflect.Value{}, reflect.Value{}, &Error{Kind: KindNotCallable, Message: ctorName + " is not a zero-argument constructor"}
	}

	out := ctor.Call(nil)
	instance := out[0]

	if ep.Method == "" {
		// class-only: the instance itself must be callable (have a Call
		// method, the closest Go analogue of Python's __call__).
		method := instance.MethodByName("Call")
		if !method.IsValid() {
			return reflect.Value{}, reflect.Value{}, &Error{Kind: KindNotCallable, Message: ep.Class + " has no Call method and no method was configured"}
		}
		return instance, method, nil
	}

	method := instance.MethodByName(ep.Method)
	if !method.IsValid() {
		return reflect.Value{}, reflect.Value{}, &Error{Kind: KindSymbolNotFound, Message: ep.Class + "." + ep.Method}
	}
	return instance, method, nil
}

func (r *Resolver) resolveFunction(plug *plugin.Plugin, name string) (reflect.Value, error) {
	sym, err := plug.Lookup(name)
	if err != nil {
		return reflect.Value{}, &Error{Kind: KindSymbolNotFound, Message: name, Err: err}
	}
	fn := reflect.ValueOf(sym)
	if fn.Kind() != reflect.Func {
		return reflect.Value{}, &Error{Kind: KindNotCallable, Message: name + " is not a function"}
	}
	return fn, nil
}

func capabilitiesSymbolName() string { return agentrt.CapabilitiesSymbol }

// ClassRegistry builds a materialize.Registry backed by modulePath's
// plugin: each requested classPath is looked up as a NewFoo zero-argument
// constructor symbol (the same convention Resolve uses for an agent's own
// class), registered as both a ZeroConstructor and, via
// materialize.AssignAttributes, a keyword-argument Constructor.
func (r *Resolver) ClassRegistry(modulePath string, classPaths []string) (*materialize.Registry, error) {
	plug, err := r.load(modulePath)
	if err != nil {
		return nil, &Error{Kind: KindModuleNotFound, Message: modulePath, Err: err}
	}

	reg := materialize.NewRegistry()
	for _, class := range classPaths {
		ctorName := "New" + class
		sym, err := plug.Lookup(ctorName)
		if err != nil {
			return nil, &Error{Kind: KindSymbolNotFound, Message: ctorName, Err: err}
		}
		ctor := reflect.ValueOf(sym)
		if ctor.Kind() != reflect.Func || ctor.Type().NumIn() != 0 || ctor.Type().NumOut() == 0 {
			return nil, &Error{Kind: KindNotCallable, Message: ctorName + " is not a zero-argument constructor"}
		}

		zero := func() (any, error) { return ctor.Call(nil)[0].Interface(), nil }
		reg.ZeroConstructors[class] = zero
		reg.Constructors[class] = func(args map[string]any) (any, error) {
			instance, err := zero()
			if err != nil {
				return nil, err
			}
			if err := materialize.AssignAttributes(instance, args); err != nil {
				return nil, err
			}
			return instance, nil
		}
		reg.ClassValues[class] = ctor.Call(nil)[0].Interface()
	}
	return reg, nil
}
