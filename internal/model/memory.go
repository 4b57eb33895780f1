package model

import (
	"fmt"
	"sort"
)

// Memory is the in-memory reference implementation of API.
//
// Not safe for concurrent use: the engine's single-writer loop owns it.
// Listing methods return results sorted by ID so iteration order is
// deterministic across runs.
type Memory struct {
	elements      map[string]Element
	relationships map[string]Relationship
	folders       map[string]Folder
	views         map[string]View
	objects       map[string]ViewObject
	connections   map[string]ViewConnection
}

// NewMemory returns an empty in-memory model.
func NewMemory() *Memory {
	return &Memory{
		elements:      make(map[string]Element),
		relationships: make(map[string]Relationship),
		folders:       make(map[string]Folder),
		views:         make(map[string]View),
		objects:       make(map[string]ViewObject),
		connections:   make(map[string]ViewConnection),
	}
}

func (m *Memory) Element(id string) (Element, bool) {
	e, ok := m.elements[id]
	return cloneElement(e), ok
}

func (m *Memory) Relationship(id string) (Relationship, bool) {
	r, ok := m.relationships[id]
	return cloneRelationship(r), ok
}

func (m *Memory) Folder(id string) (Folder, bool) {
	f, ok := m.folders[id]
	return f, ok
}

func (m *Memory) View(id string) (View, bool) {
	v, ok := m.views[id]
	return v, ok
}

func (m *Memory) Object(id string) (ViewObject, bool) {
	o, ok := m.objects[id]
	return o, ok
}

func (m *Memory) Connection(id string) (ViewConnection, bool) {
	c, ok := m.connections[id]
	return c, ok
}

// FindElement matches by (type, name). When several elements share the
// key the lowest ID wins, keeping duplicate resolution deterministic.
func (m *Memory) FindElement(typ, name string) (Element, bool) {
	var found Element
	ok := false
	for _, e := range m.elements {
		if e.Type != typ || e.Name != name {
			continue
		}
		if !ok || e.ID < found.ID {
			found = e
			ok = true
		}
	}
	return cloneElement(found), ok
}

// FindRelationship matches by the relationship identity key
// (type, source, target, name).
func (m *Memory) FindRelationship(typ, source, target, name string) (Relationship, bool) {
	var found Relationship
	ok := false
	for _, r := range m.relationships {
		if r.Type != typ || r.Source != source || r.Target != target || r.Name != name {
			continue
		}
		if !ok || r.ID < found.ID {
			found = r
			ok = true
		}
	}
	return cloneRelationship(found), ok
}

func (m *Memory) FindFolder(name, parent string) (Folder, bool) {
	var found Folder
	ok := false
	for _, f := range m.folders {
		if f.Name != name || f.Parent != parent {
			continue
		}
		if !ok || f.ID < found.ID {
			found = f
			ok = true
		}
	}
	return found, ok
}

func (m *Memory) FindView(name string) (View, bool) {
	var found View
	ok := false
	for _, v := range m.views {
		if v.Name != name {
			continue
		}
		if !ok || v.ID < found.ID {
			found = v
			ok = true
		}
	}
	return found, ok
}

func (m *Memory) RelationshipsTouching(elementID string) []Relationship {
	var out []Relationship
	for _, r := range m.relationships {
		if r.Source == elementID || r.Target == elementID {
			out = append(out, cloneRelationship(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ObjectsForElement(elementID string) []ViewObject {
	var out []ViewObject
	for _, o := range m.objects {
		if o.Kind == ObjectElement && o.Element == elementID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ObjectsInView(viewID string) []ViewObject {
	var out []ViewObject
	for _, o := range m.objects {
		if o.View == viewID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ConnectionsInView(viewID string) []ViewConnection {
	var out []ViewConnection
	for _, c := range m.connections {
		if c.View == viewID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ConnectionsTouching(objectID string) []ViewConnection {
	var out []ViewConnection
	for _, c := range m.connections {
		if c.SourceObject == objectID || c.TargetObject == objectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ConnectionsForRelationship(relationshipID string) []ViewConnection {
	var out []ViewConnection
	for _, c := range m.connections {
		if c.Relationship == relationshipID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ChildObjects(objectID string) []ViewObject {
	var out []ViewObject
	for _, o := range m.objects {
		if o.Parent == objectID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Elements() []Element {
	out := make([]Element, 0, len(m.elements))
	for _, e := range m.elements {
		out = append(out, cloneElement(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Relationships() []Relationship {
	out := make([]Relationship, 0, len(m.relationships))
	for _, r := range m.relationships {
		out = append(out, cloneRelationship(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Views() []View {
	out := make([]View, 0, len(m.views))
	for _, v := range m.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Folders() []Folder {
	out := make([]Folder, 0, len(m.folders))
	for _, f := range m.folders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) AddElement(e Element) error {
	if e.ID == "" {
		return fmt.Errorf("add element: empty ID")
	}
	if _, exists := m.elements[e.ID]; exists {
		return fmt.Errorf("add element %s: already exists", e.ID)
	}
	m.elements[e.ID] = cloneElement(e)
	return nil
}

func (m *Memory) PutElement(e Element) error {
	if _, exists := m.elements[e.ID]; !exists {
		return fmt.Errorf("put element %s: not found", e.ID)
	}
	m.elements[e.ID] = cloneElement(e)
	return nil
}

func (m *Memory) RemoveElement(id string) error {
	if _, exists := m.elements[id]; !exists {
		return fmt.Errorf("remove element %s: not found", id)
	}
	delete(m.elements, id)
	return nil
}

func (m *Memory) AddRelationship(r Relationship) error {
	if r.ID == "" {
		return fmt.Errorf("add relationship: empty ID")
	}
	if _, exists := m.relationships[r.ID]; exists {
		return fmt.Errorf("add relationship %s: already exists", r.ID)
	}
	m.relationships[r.ID] = cloneRelationship(r)
	return nil
}

func (m *Memory) PutRelationship(r Relationship) error {
	if _, exists := m.relationships[r.ID]; !exists {
		return fmt.Errorf("put relationship %s: not found", r.ID)
	}
	m.relationships[r.ID] = cloneRelationship(r)
	return nil
}

func (m *Memory) RemoveRelationship(id string) error {
	if _, exists := m.relationships[id]; !exists {
		return fmt.Errorf("remove relationship %s: not found", id)
	}
	delete(m.relationships, id)
	return nil
}

func (m *Memory) AddFolder(f Folder) error {
	if f.ID == "" {
		return fmt.Errorf("add folder: empty ID")
	}
	if _, exists := m.folders[f.ID]; exists {
		return fmt.Errorf("add folder %s: already exists", f.ID)
	}
	m.folders[f.ID] = f
	return nil
}

func (m *Memory) RemoveFolder(id string) error {
	if _, exists := m.folders[id]; !exists {
		return fmt.Errorf("remove folder %s: not found", id)
	}
	delete(m.folders, id)
	return nil
}

func (m *Memory) AddView(v View) error {
	if v.ID == "" {
		return fmt.Errorf("add view: empty ID")
	}
	if _, exists := m.views[v.ID]; exists {
		return fmt.Errorf("add view %s: already exists", v.ID)
	}
	m.views[v.ID] = v
	return nil
}

func (m *Memory) RemoveView(id string) error {
	if _, exists := m.views[id]; !exists {
		return fmt.Errorf("remove view %s: not found", id)
	}
	delete(m.views, id)
	return nil
}

func (m *Memory) AddObject(o ViewObject) error {
	if o.ID == "" {
		return fmt.Errorf("add object: empty ID")
	}
	if _, exists := m.objects[o.ID]; exists {
		return fmt.Errorf("add object %s: already exists", o.ID)
	}
	m.objects[o.ID] = o
	return nil
}

func (m *Memory) PutObject(o ViewObject) error {
	if _, exists := m.objects[o.ID]; !exists {
		return fmt.Errorf("put object %s: not found", o.ID)
	}
	m.objects[o.ID] = o
	return nil
}

func (m *Memory) RemoveObject(id string) error {
	if _, exists := m.objects[id]; !exists {
		return fmt.Errorf("remove object %s: not found", id)
	}
	delete(m.objects, id)
	return nil
}

func (m *Memory) AddConnection(c ViewConnection) error {
	if c.ID == "" {
		return fmt.Errorf("add connection: empty ID")
	}
	if _, exists := m.connections[c.ID]; exists {
		return fmt.Errorf("add connection %s: already exists", c.ID)
	}
	m.connections[c.ID] = c
	return nil
}

func (m *Memory) PutConnection(c ViewConnection) error {
	if _, exists := m.connections[c.ID]; !exists {
		return fmt.Errorf("put connection %s: not found", c.ID)
	}
	m.connections[c.ID] = c
	return nil
}

func (m *Memory) RemoveConnection(id string) error {
	if _, exists := m.connections[id]; !exists {
		return fmt.Errorf("remove connection %s: not found", id)
	}
	delete(m.connections, id)
	return nil
}

// cloneElement copies the properties map so callers cannot alias stored
// state. Both directions clone: writes so later caller mutation cannot
// reach the store, reads so returned snapshots are safe to edit.
func cloneElement(e Element) Element {
	if e.Properties != nil {
		props := make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			props[k] = v
		}
		e.Properties = props
	}
	return e
}

func cloneRelationship(r Relationship) Relationship {
	if r.Properties != nil {
		props := make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			props[k] = v
		}
		r.Properties = props
	}
	return r
}
