package model

import "fmt"

// Concrete commands, one per mutation the engine can request. Each
// constructor takes the fully-resolved target (real IDs only, never
// placeholders); reference resolution happens before a command is built.

type addElement struct {
	el Element
}

// NewAddElement creates a command that inserts a new element.
func NewAddElement(el Element) Command {
	return &addElement{el: el}
}

func (c *addElement) Apply(api API) error  { return api.AddElement(c.el) }
func (c *addElement) Revert(api API) error { return api.RemoveElement(c.el.ID) }
func (c *addElement) Label() string        { return fmt.Sprintf("create element %q", c.el.Name) }

type updateElement struct {
	next Element
	prev Element
}

// NewUpdateElement creates a command that replaces an element's fields.
// The previous state is captured at Apply time so Redo after Undo stays
// correct.
func NewUpdateElement(next Element) Command {
	return &updateElement{next: next}
}

func (c *updateElement) Apply(api API) error {
	prev, ok := api.Element(c.next.ID)
	if !ok {
		return fmt.Errorf("update element %s: not found", c.next.ID)
	}
	c.prev = prev
	return api.PutElement(c.next)
}

func (c *updateElement) Revert(api API) error { return api.PutElement(c.prev) }
func (c *updateElement) Label() string        { return fmt.Sprintf("update element %q", c.next.Name) }

type deleteElement struct {
	id      string
	prev    Element
	rels    []Relationship
	objects []ViewObject
	conns   []ViewConnection
}

// NewDeleteElement creates a command that removes an element together
// with its relationships and view occurrences. The cascade set is
// captured during Apply for exact restoration on Revert.
func NewDeleteElement(id string) Command {
	return &deleteElement{id: id}
}

func (c *deleteElement) Apply(api API) error {
	prev, ok := api.Element(c.id)
	if !ok {
		return fmt.Errorf("delete element %s: not found", c.id)
	}
	c.prev = prev
	c.rels = api.RelationshipsTouching(c.id)
	c.objects = api.ObjectsForElement(c.id)

	c.conns = nil
	seen := map[string]bool{}
	for _, o := range c.objects {
		for _, conn := range api.ConnectionsTouching(o.ID) {
			if !seen[conn.ID] {
				seen[conn.ID] = true
				c.conns = append(c.conns, conn)
			}
		}
	}
	for _, r := range c.rels {
		for _, conn := range api.ConnectionsForRelationship(r.ID) {
			if !seen[conn.ID] {
				seen[conn.ID] = true
				c.conns = append(c.conns, conn)
			}
		}
	}

	for _, conn := range c.conns {
		if err := api.RemoveConnection(conn.ID); err != nil {
			return err
		}
	}
	for _, o := range c.objects {
		if err := api.RemoveObject(o.ID); err != nil {
			return err
		}
	}
	for _, r := range c.rels {
		if err := api.RemoveRelationship(r.ID); err != nil {
			return err
		}
	}
	return api.RemoveElement(c.id)
}

func (c *deleteElement) Revert(api API) error {
	if err := api.AddElement(c.prev); err != nil {
		return err
	}
	for _, r := range c.rels {
		if err := api.AddRelationship(r); err != nil {
			return err
		}
	}
	for _, o := range c.objects {
		if err := api.AddObject(o); err != nil {
			return err
		}
	}
	for _, conn := range c.conns {
		if err := api.AddConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

func (c *deleteElement) Label() string { return fmt.Sprintf("delete element %q", c.prev.Name) }

type addRelationship struct {
	rel Relationship
}

// NewAddRelationship creates a command that inserts a new relationship.
func NewAddRelationship(rel Relationship) Command {
	return &addRelationship{rel: rel}
}

func (c *addRelationship) Apply(api API) error  { return api.AddRelationship(c.rel) }
func (c *addRelationship) Revert(api API) error { return api.RemoveRelationship(c.rel.ID) }
func (c *addRelationship) Label() string {
	return fmt.Sprintf("create %s relationship", c.rel.Type)
}

type deleteRelationship struct {
	id    string
	prev  Relationship
	conns []ViewConnection
}

// NewDeleteRelationship creates a command that removes a relationship
// and its visual occurrences.
func NewDeleteRelationship(id string) Command {
	return &deleteRelationship{id: id}
}

func (c *deleteRelationship) Apply(api API) error {
	prev, ok := api.Relationship(c.id)
	if !ok {
		return fmt.Errorf("delete relationship %s: not found", c.id)
	}
	c.prev = prev
	c.conns = api.ConnectionsForRelationship(c.id)
	for _, conn := range c.conns {
		if err := api.RemoveConnection(conn.ID); err != nil {
			return err
		}
	}
	return api.RemoveRelationship(c.id)
}

func (c *deleteRelationship) Revert(api API) error {
	if err := api.AddRelationship(c.prev); err != nil {
		return err
	}
	for _, conn := range c.conns {
		if err := api.AddConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

func (c *deleteRelationship) Label() string {
	return fmt.Sprintf("delete %s relationship", c.prev.Type)
}

type setProperty struct {
	owner   string
	key     string
	value   string
	isRel   bool
	hadPrev bool
	prev    string
}

// NewSetProperty creates a command that sets one property on an element
// or relationship.
func NewSetProperty(owner, key, value string) Command {
	return &setProperty{owner: owner, key: key, value: value}
}

func (c *setProperty) Apply(api API) error {
	if el, ok := api.Element(c.owner); ok {
		c.isRel = false
		c.prev, c.hadPrev = el.Properties[c.key]
		if el.Properties == nil {
			el.Properties = map[string]string{}
		}
		el.Properties[c.key] = c.value
		return api.PutElement(el)
	}
	if rel, ok := api.Relationship(c.owner); ok {
		c.isRel = true
		c.prev, c.hadPrev = rel.Properties[c.key]
		if rel.Properties == nil {
			rel.Properties = map[string]string{}
		}
		rel.Properties[c.key] = c.value
		return api.PutRelationship(rel)
	}
	return fmt.Errorf("set property on %s: not found", c.owner)
}

func (c *setProperty) Revert(api API) error {
	if c.isRel {
		rel, ok := api.Relationship(c.owner)
		if !ok {
			return fmt.Errorf("revert set property on %s: not found", c.owner)
		}
		if c.hadPrev {
			rel.Properties[c.key] = c.prev
		} else {
			delete(rel.Properties, c.key)
		}
		return api.PutRelationship(rel)
	}
	el, ok := api.Element(c.owner)
	if !ok {
		return fmt.Errorf("revert set property on %s: not found", c.owner)
	}
	if c.hadPrev {
		el.Properties[c.key] = c.prev
	} else {
		delete(el.Properties, c.key)
	}
	return api.PutElement(el)
}

func (c *setProperty) Label() string { return fmt.Sprintf("set property %q", c.key) }

type removeProperty struct {
	owner   string
	key     string
	isRel   bool
	hadPrev bool
	prev    string
}

// NewRemoveProperty creates a command that removes one property.
func NewRemoveProperty(owner, key string) Command {
	return &removeProperty{owner: owner, key: key}
}

func (c *removeProperty) Apply(api API) error {
	if el, ok := api.Element(c.owner); ok {
		c.isRel = false
		c.prev, c.hadPrev = el.Properties[c.key]
		delete(el.Properties, c.key)
		return api.PutElement(el)
	}
	if rel, ok := api.Relationship(c.owner); ok {
		c.isRel = true
		c.prev, c.hadPrev = rel.Properties[c.key]
		delete(rel.Properties, c.key)
		return api.PutRelationship(rel)
	}
	return fmt.Errorf("remove property on %s: not found", c.owner)
}

func (c *removeProperty) Revert(api API) error {
	if !c.hadPrev {
		return nil
	}
	restore := &setProperty{owner: c.owner, key: c.key, value: c.prev}
	return restore.Apply(api)
}

func (c *removeProperty) Label() string { return fmt.Sprintf("remove property %q", c.key) }

type moveToFolder struct {
	id     string
	folder string
	isView bool
	prev   string
}

// NewMoveToFolder creates a command that re-homes an element or view.
func NewMoveToFolder(id, folder string) Command {
	return &moveToFolder{id: id, folder: folder}
}

func (c *moveToFolder) Apply(api API) error {
	if el, ok := api.Element(c.id); ok {
		c.isView = false
		c.prev = el.Folder
		el.Folder = c.folder
		return api.PutElement(el)
	}
	if v, ok := api.View(c.id); ok {
		c.isView = true
		c.prev = v.Folder
		v.Folder = c.folder
		if err := api.RemoveView(v.ID); err != nil {
			return err
		}
		return api.AddView(v)
	}
	return fmt.Errorf("move %s to folder: not found", c.id)
}

func (c *moveToFolder) Revert(api API) error {
	if c.isView {
		v, ok := api.View(c.id)
		if !ok {
			return fmt.Errorf("revert move %s: not found", c.id)
		}
		v.Folder = c.prev
		if err := api.RemoveView(v.ID); err != nil {
			return err
		}
		return api.AddView(v)
	}
	el, ok := api.Element(c.id)
	if !ok {
		return fmt.Errorf("revert move %s: not found", c.id)
	}
	el.Folder = c.prev
	return api.PutElement(el)
}

func (c *moveToFolder) Label() string { return "move to folder" }

type addFolder struct {
	folder Folder
}

// NewAddFolder creates a command that inserts a new folder.
func NewAddFolder(f Folder) Command {
	return &addFolder{folder: f}
}

func (c *addFolder) Apply(api API) error  { return api.AddFolder(c.folder) }
func (c *addFolder) Revert(api API) error { return api.RemoveFolder(c.folder.ID) }
func (c *addFolder) Label() string        { return fmt.Sprintf("create folder %q", c.folder.Name) }

type addView struct {
	view View
}

// NewAddView creates a command that inserts a new view.
func NewAddView(v View) Command {
	return &addView{view: v}
}

func (c *addView) Apply(api API) error  { return api.AddView(c.view) }
func (c *addView) Revert(api API) error { return api.RemoveView(c.view.ID) }
func (c *addView) Label() string        { return fmt.Sprintf("create view %q", c.view.Name) }

type deleteView struct {
	id      string
	prev    View
	objects []ViewObject
	conns   []ViewConnection
}

// NewDeleteView creates a command that removes a view and everything
// placed on it. Model-side elements and relationships survive.
func NewDeleteView(id string) Command {
	return &deleteView{id: id}
}

func (c *deleteView) Apply(api API) error {
	prev, ok := api.View(c.id)
	if !ok {
		return fmt.Errorf("delete view %s: not found", c.id)
	}
	c.prev = prev
	c.objects = api.ObjectsInView(c.id)
	c.conns = api.ConnectionsInView(c.id)
	for _, conn := range c.conns {
		if err := api.RemoveConnection(conn.ID); err != nil {
			return err
		}
	}
	for _, o := range c.objects {
		if err := api.RemoveObject(o.ID); err != nil {
			return err
		}
	}
	return api.RemoveView(c.id)
}

func (c *deleteView) Revert(api API) error {
	if err := api.AddView(c.prev); err != nil {
		return err
	}
	for _, o := range c.objects {
		if err := api.AddObject(o); err != nil {
			return err
		}
	}
	for _, conn := range c.conns {
		if err := api.AddConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

func (c *deleteView) Label() string { return fmt.Sprintf("delete view %q", c.prev.Name) }

type addObject struct {
	obj ViewObject
}

// NewAddObject creates a command that places an object on a view.
// Covers element occurrences, notes, and groups.
func NewAddObject(o ViewObject) Command {
	return &addObject{obj: o}
}

func (c *addObject) Apply(api API) error  { return api.AddObject(c.obj) }
func (c *addObject) Revert(api API) error { return api.RemoveObject(c.obj.ID) }
func (c *addObject) Label() string        { return "add to view" }

type removeObject struct {
	id       string
	prev     ViewObject
	conns    []ViewConnection
	children map[string]string // child object ID -> previous parent
}

// NewRemoveObject creates a command that removes a placed object. Its
// connections go with it; nested children are re-parented to the view
// top level.
func NewRemoveObject(id string) Command {
	return &removeObject{id: id}
}

func (c *removeObject) Apply(api API) error {
	prev, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("remove object %s: not found", c.id)
	}
	c.prev = prev
	c.conns = api.ConnectionsTouching(c.id)
	for _, conn := range c.conns {
		if err := api.RemoveConnection(conn.ID); err != nil {
			return err
		}
	}
	c.children = map[string]string{}
	for _, child := range api.ChildObjects(c.id) {
		c.children[child.ID] = child.Parent
		child.Parent = ""
		if err := api.PutObject(child); err != nil {
			return err
		}
	}
	return api.RemoveObject(c.id)
}

func (c *removeObject) Revert(api API) error {
	if err := api.AddObject(c.prev); err != nil {
		return err
	}
	for id, parent := range c.children {
		child, ok := api.Object(id)
		if !ok {
			return fmt.Errorf("revert remove object: child %s not found", id)
		}
		child.Parent = parent
		if err := api.PutObject(child); err != nil {
			return err
		}
	}
	for _, conn := range c.conns {
		if err := api.AddConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

func (c *removeObject) Label() string { return "remove from view" }

type addConnection struct {
	conn ViewConnection
}

// NewAddConnection creates a command that draws a relationship between
// two placed objects.
func NewAddConnection(conn ViewConnection) Command {
	return &addConnection{conn: conn}
}

func (c *addConnection) Apply(api API) error  { return api.AddConnection(c.conn) }
func (c *addConnection) Revert(api API) error { return api.RemoveConnection(c.conn.ID) }
func (c *addConnection) Label() string        { return "add connection to view" }

type nestObject struct {
	id     string
	parent string
	prev   string
}

// NewNestObject creates a command that moves an object inside another
// object on the same view.
func NewNestObject(id, parent string) Command {
	return &nestObject{id: id, parent: parent}
}

func (c *nestObject) Apply(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("nest object %s: not found", c.id)
	}
	c.prev = o.Parent
	o.Parent = c.parent
	return api.PutObject(o)
}

func (c *nestObject) Revert(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("revert nest object %s: not found", c.id)
	}
	o.Parent = c.prev
	return api.PutObject(o)
}

func (c *nestObject) Label() string { return "nest in view" }

type moveObject struct {
	id     string
	bounds Bounds
	prev   Bounds
}

// NewMoveObject creates a command that repositions a placed object.
func NewMoveObject(id string, bounds Bounds) Command {
	return &moveObject{id: id, bounds: bounds}
}

func (c *moveObject) Apply(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("move object %s: not found", c.id)
	}
	c.prev = o.Bounds
	o.Bounds = c.bounds
	return api.PutObject(o)
}

func (c *moveObject) Revert(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("revert move object %s: not found", c.id)
	}
	o.Bounds = c.prev
	return api.PutObject(o)
}

func (c *moveObject) Label() string { return "move object" }

type styleObject struct {
	id    string
	patch Style
	prev  Style
}

// NewStyleObject creates a command that overlays style attributes on a
// placed object. Zero-valued patch fields leave the current value.
func NewStyleObject(id string, patch Style) Command {
	return &styleObject{id: id, patch: patch}
}

func (c *styleObject) Apply(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("style object %s: not found", c.id)
	}
	c.prev = o.Style
	o.Style = o.Style.merge(c.patch)
	return api.PutObject(o)
}

func (c *styleObject) Revert(api API) error {
	o, ok := api.Object(c.id)
	if !ok {
		return fmt.Errorf("revert style object %s: not found", c.id)
	}
	o.Style = c.prev
	return api.PutObject(o)
}

func (c *styleObject) Label() string { return "style object" }

type styleConnection struct {
	id    string
	patch Style
	prev  Style
}

// NewStyleConnection creates a command that overlays style attributes on
// a view connection.
func NewStyleConnection(id string, patch Style) Command {
	return &styleConnection{id: id, patch: patch}
}

func (c *styleConnection) Apply(api API) error {
	conn, ok := api.Connection(c.id)
	if !ok {
		return fmt.Errorf("style connection %s: not found", c.id)
	}
	c.prev = conn.Style
	conn.Style = conn.Style.merge(c.patch)
	return api.PutConnection(conn)
}

func (c *styleConnection) Revert(api API) error {
	conn, ok := api.Connection(c.id)
	if !ok {
		return fmt.Errorf("revert style connection %s: not found", c.id)
	}
	conn.Style = c.prev
	return api.PutConnection(conn)
}

func (c *styleConnection) Label() string { return "style connection" }
