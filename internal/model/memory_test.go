package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AddAndLookup(t *testing.T) {
	m := NewMemory()

	err := m.AddElement(Element{ID: "e1", Type: "BusinessActor", Name: "Customer"})
	require.NoError(t, err)

	el, ok := m.Element("e1")
	require.True(t, ok)
	assert.Equal(t, "Customer", el.Name)

	_, ok = m.Element("missing")
	assert.False(t, ok)
}

func TestMemory_AddDuplicateIDFails(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{ID: "e1", Type: "Node", Name: "A"}))
	err := m.AddElement(Element{ID: "e1", Type: "Node", Name: "B"})
	assert.Error(t, err)
}

func TestMemory_RemoveMissingFails(t *testing.T) {
	m := NewMemory()

	assert.Error(t, m.RemoveElement("nope"))
	assert.Error(t, m.RemoveRelationship("nope"))
	assert.Error(t, m.RemoveView("nope"))
	assert.Error(t, m.RemoveObject("nope"))
}

func TestMemory_FindElement_LowestIDWins(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{ID: "e2", Type: "Node", Name: "Dup"}))
	require.NoError(t, m.AddElement(Element{ID: "e1", Type: "Node", Name: "Dup"}))

	el, ok := m.FindElement("Node", "Dup")
	require.True(t, ok)
	assert.Equal(t, "e1", el.ID)
}

func TestMemory_FindElement_MatchesTypeAndName(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{ID: "e1", Type: "BusinessActor", Name: "X"}))

	_, ok := m.FindElement("ApplicationComponent", "X")
	assert.False(t, ok)
	_, ok = m.FindElement("BusinessActor", "Y")
	assert.False(t, ok)
	_, ok = m.FindElement("BusinessActor", "X")
	assert.True(t, ok)
}

func TestMemory_FindRelationship_IdentityKey(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{ID: "a", Type: "Node", Name: "A"}))
	require.NoError(t, m.AddElement(Element{ID: "b", Type: "Node", Name: "B"}))
	require.NoError(t, m.AddRelationship(Relationship{
		ID: "r1", Type: "FlowRelationship", Source: "a", Target: "b",
	}))

	_, ok := m.FindRelationship("FlowRelationship", "a", "b", "")
	assert.True(t, ok)
	_, ok = m.FindRelationship("FlowRelationship", "b", "a", "")
	assert.False(t, ok)
	_, ok = m.FindRelationship("FlowRelationship", "a", "b", "named")
	assert.False(t, ok)
}

func TestMemory_ListingsSortedByID(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{ID: "c", Type: "Node", Name: "C"}))
	require.NoError(t, m.AddElement(Element{ID: "a", Type: "Node", Name: "A"}))
	require.NoError(t, m.AddElement(Element{ID: "b", Type: "Node", Name: "B"}))

	els := m.Elements()
	require.Len(t, els, 3)
	assert.Equal(t, "a", els[0].ID)
	assert.Equal(t, "b", els[1].ID)
	assert.Equal(t, "c", els[2].ID)
}

func TestMemory_PropertiesCloned(t *testing.T) {
	m := NewMemory()

	props := map[string]string{"owner": "team-a"}
	require.NoError(t, m.AddElement(Element{ID: "e1", Type: "Node", Name: "A", Properties: props}))

	el, _ := m.Element("e1")
	el.Properties["owner"] = "mutated"

	fresh, _ := m.Element("e1")
	assert.Equal(t, "team-a", fresh.Properties["owner"])
}

func TestMemory_ReadPathsDoNotAliasStore(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddElement(Element{
		ID: "e1", Type: "Node", Name: "A",
		Properties: map[string]string{"owner": "team-a"},
	}))
	require.NoError(t, m.AddElement(Element{ID: "e2", Type: "Node", Name: "B"}))
	require.NoError(t, m.AddRelationship(Relationship{
		ID: "r1", Type: "Flow", Source: "e1", Target: "e2",
		Properties: map[string]string{"medium": "https"},
	}))

	found, ok := m.FindElement("Node", "A")
	require.True(t, ok)
	found.Properties["owner"] = "mutated"

	m.Elements()[0].Properties["owner"] = "mutated"

	rel, ok := m.Relationship("r1")
	require.True(t, ok)
	rel.Properties["medium"] = "mutated"

	m.Relationships()[0].Properties["medium"] = "mutated"
	m.RelationshipsTouching("e1")[0].Properties["medium"] = "mutated"

	foundRel, ok := m.FindRelationship("Flow", "e1", "e2", "")
	require.True(t, ok)
	foundRel.Properties["medium"] = "mutated"

	el, _ := m.Element("e1")
	assert.Equal(t, "team-a", el.Properties["owner"])
	fresh, _ := m.Relationship("r1")
	assert.Equal(t, "https", fresh.Properties["medium"])
}

func TestMemory_DependencyQueries(t *testing.T) {
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

	assert.Len(t, m.RelationshipsTouching("a"), 1)
	assert.Len(t, m.RelationshipsTouching("b"), 1)
	assert.Len(t, m.ObjectsForElement("a"), 1)
	assert.Len(t, m.ObjectsInView("v1"), 2)
	assert.Len(t, m.ConnectionsInView("v1"), 1)
	assert.Len(t, m.ConnectionsTouching("o1"), 1)
	assert.Len(t, m.ConnectionsForRelationship("r1"), 1)
}

func TestMemory_ChildObjects(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.AddView(View{ID: "v1", Name: "V"}))
	require.NoError(t, m.AddObject(ViewObject{ID: "g1", View: "v1", Kind: ObjectGroup, Name: "G"}))
	require.NoError(t, m.AddObject(ViewObject{ID: "o1", View: "v1", Kind: ObjectNote, Text: "n", Parent: "g1"}))

	children := m.ChildObjects("g1")
	require.Len(t, children, 1)
	assert.Equal(t, "o1", children[0].ID)
}
