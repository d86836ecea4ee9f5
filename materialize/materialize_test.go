package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name  string
	Count int
}

func TestMaterialize_Primitives(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	args, err := m.Materialize([]InputDef{
		{Type: TagString, Value: "hello"},
		{Type: TagNumber, Value: 3.0},
		{Type: TagBool, Value: true},
	})

	require.NoError(t, err)
	assert.Equal(t, []any{"hello", 3.0, true}, args)
}

func TestMaterialize_NumberAcceptsInt(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	args, err := m.Materialize([]InputDef{{Type: TagNumber, Value: 5}})
	require.NoError(t, err)
	assert.Equal(t, 5.0, args[0])
}

func TestMaterialize_TypeMismatchErrors(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	_, err := m.Materialize([]InputDef{{Type: TagString, Value: 5}})
	require.Error(t, err)

	var matErr *Error
	require.ErrorAs(t, err, &matErr)
	assert.Equal(t, 0, matErr.Index)
}

func TestMaterialize_Object(t *testing.T) {
	reg := NewRegistry()
	reg.Constructors["widget"] = func(args map[string]any) (any, error) {
		return &widget{Name: args["name"].(string), Count: int(args["count"].(float64))}, nil
	}
	m := New(reg)

	args, err := m.Materialize([]InputDef{
		{Type: TagObject, ClassPath: "widget", Args: map[string]any{"name": "gizmo", "count": 3.0}},
	})
	require.NoError(t, err)

	w, ok := args[0].(*widget)
	require.True(t, ok)
	assert.Equal(t, "gizmo", w.Name)
	assert.Equal(t, 3, w.Count)
}

func TestMaterialize_InlineObject(t *testing.T) {
	reg := NewRegistry()
	reg.ZeroConstructors["widget"] = func() (any, error) {
		return &widget{}, nil
	}
	m := New(reg)

	args, err := m.Materialize([]InputDef{
		{Type: TagInlineObject, ClassPath: "widget", Attributes: map[string]any{"Name": "assigned", "Count": 7}},
	})
	require.NoError(t, err)

	w, ok := args[0].(*widget)
	require.True(t, ok)
	assert.Equal(t, "assigned", w.Name)
	assert.Equal(t, 7, w.Count)
}

func TestMaterialize_InlineObjectUnknownAttribute(t *testing.T) {
	reg := NewRegistry()
	reg.ZeroConstructors["widget"] = func() (any, error) { return &widget{}, nil }
	m := New(reg)

	_, err := m.Materialize([]InputDef{
		{Type: TagInlineObject, ClassPath: "widget", Attributes: map[string]any{"Missing": "x"}},
	})
	assert.Error(t, err)
}

func TestMaterialize_ClassObjectImportPath(t *testing.T) {
	reg := NewRegistry()
	reg.ClassValues["widget"] = widget{}
	m := New(reg)

	args, err := m.Materialize([]InputDef{
		{Type: TagClassObject, ImportPath: "widget"},
	})
	require.NoError(t, err)
	assert.Equal(t, widget{}, args[0])
}

func TestMaterialize_Idempotent(t *testing.T) {
	// P6: materializing the same definition twice yields equal arguments.
	reg := NewRegistry()
	m := New(reg)
	def := InputDef{Type: TagString, Value: "hello"}

	a1, err1 := m.Materialize([]InputDef{def})
	a2, err2 := m.Materialize([]InputDef{def})

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, a1, a2)
}
