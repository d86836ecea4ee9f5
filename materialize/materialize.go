// Package materialize turns a declarative input-definition list into the
// ordered positional arguments a resolved entry point is called with.
package materialize

import (
	"encoding/gob"
	"fmt"
	"os"
	"reflect"
)

// Tag is the input definition's dispatch discriminator.
type Tag string

const (
	TagString       Tag = "string"
	TagNumber       Tag = "number"
	TagBool         Tag = "bool"
	TagList         Tag = "list"
	TagMap          Tag = "map"
	TagObject       Tag = "object"
	TagClassObject  Tag = "class_object"
	TagInlineObject Tag = "inline_object"
)

// InputDef is the runtime form of one declarative input (config.InputDefConfig
// decoded into a materializer-friendly shape).
type InputDef struct {
	Type       Tag
	Value      any
	ClassPath  string
	ImportPath string
	PicklePath string
	Args       map[string]any
	Attributes map[string]any
}

// Error is InputMaterializationError: it carries the offending index and
// definition.
type Error struct {
	Index int
	Def   InputDef
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("materialize: input %d (%s %q): %v", e.Index, e.Def.Type, e.Def.ClassPath, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Constructor builds an instance of a registered class from keyword-style
// arguments. Registered by ClassPath at plugin-load time (entrypoint
// populates this registry from the same symbol table it resolves entry
// points against).
type Constructor func(args map[string]any) (any, error)

// ZeroConstructor default-constructs an instance with no arguments, for
// inline_object's "construct then assign attributes" path.
type ZeroConstructor func() (any, error)

// Registry is the type registry consulted for object/inline_object/class_object
// definitions, standing in for a dotted-path dynamic import.
type Registry struct {
	Constructors     map[string]Constructor
	ZeroConstructors map[string]ZeroConstructor
	ClassValues      map[string]any // class_object's "return the class itself"
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		Constructors:     make(map[string]Constructor),
		ZeroConstructors: make(map[string]ZeroConstructor),
		ClassValues:      make(map[string]any),
	}
}

// Materializer produces ordered call arguments from input definitions.
type Materializer struct {
	Registry *Registry
}

// New creates a Materializer bound to the given registry.
func New(reg *Registry) *Materializer {
	return &Materializer{Registry: reg}
}

// Materialize converts every definition into a positional argument, in
// order. A single-argument call returns a one-element slice; callers
// decide whether to spread or pass the scalar.
func (m *Materializer) Materialize(defs []InputDef) ([]any, error) {
	args := make([]any, 0, len(defs))
	for i, def := range defs {
		val, err := m.materializeOne(def)
		if err != nil {
			return nil, &Error{Index: i, Def: def, Err: err}
		}
		args = append(args, val)
	}
	return args, nil
}

func (m *Materializer) materializeOne(def InputDef) (any, error) {
	switch def.Type {
	case TagString:
		return asTyped[string](def.Value)
	case TagNumber:
		return asNumber(def.Value)
	case TagBool:
		return asTyped[bool](def.Value)
	case TagList:
		return asTyped[[]any](def.Value)
	case TagMap:
		return asTyped[map[string]any](def.Value)
	case TagObject:
		return m.materializeObject(def)
	case TagInlineObject:
		return m.materializeInlineObject(def)
	case TagClassObject:
		return m.materializeClassObject(def)
	default:
		return nil, fmt.Errorf("unknown input tag %q", def.Type)
	}
}

func asTyped[T any](v any) (T, error) {
	var zero T
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("value %#v does not match declared type %T", v, zero)
	}
	return typed, nil
}

// asNumber accepts int/int64/float64 interchangeably, since YAML decoders
// commonly hand back either depending on the literal's shape.
func asNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %#v is not numeric", v)
	}
}

func (m *Materializer) materializeObject(def InputDef) (any, error) {
	ctor, ok := m.Registry.Constructors[def.ClassPath]
	if !ok {
		return nil, fmt.Errorf("no constructor registered for class_path %q", def.ClassPath)
	}
	return ctor(def.Args)
}

func (m *Materializer) materializeInlineObject(def InputDef) (any, error) {
	ctor, ok := m.Registry.ZeroConstructors[def.ClassPath]
	if !ok {
		return nil, fmt.Errorf("no zero-argument constructor registered for class_path %q", def.ClassPath)
	}
	instance, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("default-construct %q: %w", def.ClassPath, err)
	}
	if err := AssignAttributes(instance, def.Attributes); err != nil {
		return nil, fmt.Errorf("class_path %q: %w", def.ClassPath, err)
	}
	return instance, nil
}

// AssignAttributes sets each named attribute onto instance's corresponding
// exported field via reflection, converting when the value's type is
// merely convertible rather than directly assignable. instance must be a
// pointer to a struct. Shared by inline_object materialization and by any
// caller building a Constructor from a bare zero-argument constructor plus
// a keyword-argument map (the entry point's own class-registry plumbing).
func AssignAttributes(instance any, attrs map[string]any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("instance is not an assignable struct")
	}

	for name, attrVal := range attrs {
		field := v.FieldByName(name)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("attribute %q is not an exported, settable field", name)
		}
		rv := reflect.ValueOf(attrVal)
		if !rv.Type().AssignableTo(field.Type()) {
			if rv.Type().ConvertibleTo(field.Type()) {
				rv = rv.Convert(field.Type())
			} else {
				return fmt.Errorf("attribute %q: value %#v not assignable to field type %s", name, attrVal, field.Type())
			}
		}
		field.Set(rv)
	}
	return nil
}

func (m *Materializer) materializeClassObject(def InputDef) (any, error) {
	if def.ImportPath != "" {
		class, ok := m.Registry.ClassValues[def.ImportPath]
		if !ok {
			return nil, fmt.Errorf("no class registered for import_path %q", def.ImportPath)
		}
		return class, nil
	}
	if def.PicklePath != "" {
		return decodeGobSnapshot(def.PicklePath, def.ClassPath, m.Registry)
	}
	return nil, fmt.Errorf("class_object definition requires import_path or pickle_path")
}

// decodeGobSnapshot deserializes a previously persisted instance from a gob
// snapshot; the registry's zero constructor supplies the concrete type gob
// decodes into.
func decodeGobSnapshot(path, classPath string, reg *Registry) (any, error) {
	ctor, ok := reg.ZeroConstructors[classPath]
	if !ok {
		return nil, fmt.Errorf("no zero-argument constructor registered for class_path %q to decode snapshot into", classPath)
	}
	instance, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("default-construct %q: %w", classPath, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pickle_path %q: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(instance); err != nil {
		return nil, fmt.Errorf("decode gob snapshot %q: %w", path, err)
	}
	return instance, nil
}
