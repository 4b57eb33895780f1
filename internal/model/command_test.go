package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededModel(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	require.NoError(t, m.AddElement(Element{ID: "a", Type: "Node", Name: "A"}))
	require.NoError(t, m.AddElement(Element{ID: "b", Type: "Node", Name: "B"}))
	require.NoError(t, m.AddRelationship(Relationship{ID: "r1", Type: "Flow", Source: "a", Target: "b"}))
	require.NoError(t, m.AddView(View{ID: "v1", Name: "V"}))
	require.NoError(t, m.AddObject(ViewObject{ID: "o1", View: "v1", Kind: ObjectElement, Element: "a"}))
	require.NoError(t, m.AddObject(ViewObject{ID: "o2", View: "v1", Kind: ObjectElement, Element: "b"}))
	require.NoError(t, m.AddConnection(ViewConnection{
		ID: "c1", View: "v1", Relationship: "r1", SourceObject: "o1", TargetObject: "o2",
	}))
	return m
}

func TestAddElement_Revert(t *testing.T) {
	m := NewMemory()

	cmd := NewAddElement(Element{ID: "e1", Type: "Node", Name: "N"})
	require.NoError(t, cmd.Apply(m))
	_, ok := m.Element("e1")
	require.True(t, ok)

	require.NoError(t, cmd.Revert(m))
	_, ok = m.Element("e1")
	assert.False(t, ok)
}

func TestUpdateElement_RevertRestoresPrev(t *testing.T) {
	m := seededModel(t)

	cmd := NewUpdateElement(Element{ID: "a", Type: "Node", Name: "A2", Documentation: "doc"})
	require.NoError(t, cmd.Apply(m))

	el, _ := m.Element("a")
	assert.Equal(t, "A2", el.Name)

	require.NoError(t, cmd.Revert(m))
	el, _ = m.Element("a")
	assert.Equal(t, "A", el.Name)
	assert.Empty(t, el.Documentation)
}

func TestDeleteElement_CascadesAndReverts(t *testing.T) {
	m := seededModel(t)

	cmd := NewDeleteElement("a")
	require.NoError(t, cmd.Apply(m))

	_, ok := m.Element("a")
	assert.False(t, ok)
	_, ok = m.Relationship("r1")
	assert.False(t, ok, "touching relationship should cascade")
	_, ok = m.Object("o1")
	assert.False(t, ok, "view occurrence should cascade")
	_, ok = m.Connection("c1")
	assert.False(t, ok, "connection should cascade")

	// The other element and its object survive.
	_, ok = m.Element("b")
	assert.True(t, ok)
	_, ok = m.Object("o2")
	assert.True(t, ok)

	require.NoError(t, cmd.Revert(m))
	_, ok = m.Element("a")
	assert.True(t, ok)
	_, ok = m.Relationship("r1")
	assert.True(t, ok)
	_, ok = m.Object("o1")
	assert.True(t, ok)
	_, ok = m.Connection("c1")
	assert.True(t, ok)
}

func TestDeleteView_ModelEntitiesSurvive(t *testing.T) {
	m := seededModel(t)

	cmd := NewDeleteView("v1")
	require.NoError(t, cmd.Apply(m))

	_, ok := m.View("v1")
	assert.False(t, ok)
	assert.Empty(t, m.ObjectsInView("v1"))
	_, ok = m.Element("a")
	assert.True(t, ok)
	_, ok = m.Relationship("r1")
	assert.True(t, ok)

	require.NoError(t, cmd.Revert(m))
	_, ok = m.View("v1")
	assert.True(t, ok)
	assert.Len(t, m.ObjectsInView("v1"), 2)
	assert.Len(t, m.ConnectionsInView("v1"), 1)
}

func TestSetProperty_RevertRestoresAbsence(t *testing.T) {
	m := seededModel(t)

	cmd := NewSetProperty("a", "owner", "team-a")
	require.NoError(t, cmd.Apply(m))
	el, _ := m.Element("a")
	assert.Equal(t, "team-a", el.Properties["owner"])

	require.NoError(t, cmd.Revert(m))
	el, _ = m.Element("a")
	_, has := el.Properties["owner"]
	assert.False(t, has)
}

func TestSetProperty_RevertRestoresPreviousValue(t *testing.T) {
	m := seededModel(t)

	require.NoError(t, NewSetProperty("a", "owner", "old").Apply(m))
	cmd := NewSetProperty("a", "owner", "new")
	require.NoError(t, cmd.Apply(m))
	require.NoError(t, cmd.Revert(m))

	el, _ := m.Element("a")
	assert.Equal(t, "old", el.Properties["owner"])
}

func TestRemoveObject_ReparentsChildren(t *testing.T) {
	m := seededModel(t)
	require.NoError(t, m.AddObject(ViewObject{ID: "g1", View: "v1", Kind: ObjectGroup, Name: "G"}))
	require.NoError(t, m.AddObject(ViewObject{ID: "n1", View: "v1", Kind: ObjectNote, Text: "x", Parent: "g1"}))

	cmd := NewRemoveObject("g1")
	require.NoError(t, cmd.Apply(m))

	child, ok := m.Object("n1")
	require.True(t, ok)
	assert.Empty(t, child.Parent, "child should move to view top level")

	require.NoError(t, cmd.Revert(m))
	child, _ = m.Object("n1")
	assert.Equal(t, "g1", child.Parent)
}

func TestStyleObject_MergePatch(t *testing.T) {
	m := seededModel(t)
	require.NoError(t, NewStyleObject("o1", Style{FillColor: "#ff0000", LineWidth: 2}).Apply(m))

	cmd := NewStyleObject("o1", Style{FillColor: "#00ff00"})
	require.NoError(t, cmd.Apply(m))

	o, _ := m.Object("o1")
	assert.Equal(t, "#00ff00", o.Style.FillColor)
	assert.Equal(t, 2, o.Style.LineWidth, "untouched fields keep their value")

	require.NoError(t, cmd.Revert(m))
	o, _ = m.Object("o1")
	assert.Equal(t, "#ff0000", o.Style.FillColor)
}

func TestCompound_RevertsInReverseOrder(t *testing.T) {
	m := NewMemory()

	c := NewCompound("test batch")
	add := NewAddElement(Element{ID: "e1", Type: "Node", Name: "N"})
	require.NoError(t, add.Apply(m))
	c.Append(add)

	set := NewSetProperty("e1", "k", "v")
	require.NoError(t, set.Apply(m))
	c.Append(set)

	require.Equal(t, 2, c.Len())
	require.NoError(t, c.Revert(m))
	_, ok := m.Element("e1")
	assert.False(t, ok)
}

func TestCommandStack_UndoRedo(t *testing.T) {
	m := NewMemory()
	stack := NewCommandStack(m)

	c := NewCompound("create element")
	add := NewAddElement(Element{ID: "e1", Type: "Node", Name: "N"})
	require.NoError(t, add.Apply(m))
	c.Append(add)
	stack.Push(c)

	require.Equal(t, 1, stack.Depth())

	label, err := stack.Undo()
	require.NoError(t, err)
	assert.Equal(t, "create element", label)
	_, ok := m.Element("e1")
	assert.False(t, ok)
	assert.Equal(t, 0, stack.Depth())
	assert.Equal(t, 1, stack.RedoDepth())

	_, err = stack.Redo()
	require.NoError(t, err)
	_, ok = m.Element("e1")
	assert.True(t, ok)
}

func TestCommandStack_PushClearsRedo(t *testing.T) {
	m := NewMemory()
	stack := NewCommandStack(m)

	first := NewCompound("first")
	add := NewAddElement(Element{ID: "e1", Type: "Node", Name: "N"})
	require.NoError(t, add.Apply(m))
	first.Append(add)
	stack.Push(first)

	_, err := stack.Undo()
	require.NoError(t, err)
	require.Equal(t, 1, stack.RedoDepth())

	second := NewCompound("second")
	add2 := NewAddElement(Element{ID: "e2", Type: "Node", Name: "M"})
	require.NoError(t, add2.Apply(m))
	second.Append(add2)
	stack.Push(second)

	assert.Equal(t, 0, stack.RedoDepth())
	_, err = stack.Redo()
	assert.Error(t, err)
}

func TestCommandStack_UndoEmpty(t *testing.T) {
	stack := NewCommandStack(NewMemory())
	_, err := stack.Undo()
	assert.Error(t, err)
}
