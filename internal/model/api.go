package model

// API is the mutation and lookup surface the host model exposes to the
// engine. The host's real implementation wraps its native model; Memory
// is the in-process reference implementation.
//
// All methods must be called from the engine's single writer. Add/Remove
// pairs are exact inverses so commands stay revertible: every Add fails
// on a duplicate ID and every Remove fails on a missing ID, which turns
// double-apply and double-revert bugs into hard errors instead of silent
// corruption.
type API interface {
	// Lookups by ID.
	Element(id string) (Element, bool)
	Relationship(id string) (Relationship, bool)
	Folder(id string) (Folder, bool)
	View(id string) (View, bool)
	Object(id string) (ViewObject, bool)
	Connection(id string) (ViewConnection, bool)

	// Identity-key lookups used by duplicate resolution.
	FindElement(typ, name string) (Element, bool)
	FindRelationship(typ, source, target, name string) (Relationship, bool)
	FindFolder(name, parent string) (Folder, bool)
	FindView(name string) (View, bool)

	// Dependency queries used when deletes must capture what they cascade.
	RelationshipsTouching(elementID string) []Relationship
	ObjectsForElement(elementID string) []ViewObject
	ObjectsInView(viewID string) []ViewObject
	ConnectionsInView(viewID string) []ViewConnection
	ConnectionsTouching(objectID string) []ViewConnection
	ConnectionsForRelationship(relationshipID string) []ViewConnection
	ChildObjects(objectID string) []ViewObject

	// Whole-model listings for reporting and tests.
	Elements() []Element
	Relationships() []Relationship
	Views() []View
	Folders() []Folder

	// Mutations.
	AddElement(Element) error
	PutElement(Element) error
	RemoveElement(id string) error
	AddRelationship(Relationship) error
	PutRelationship(Relationship) error
	RemoveRelationship(id string) error
	AddFolder(Folder) error
	RemoveFolder(id string) error
	AddView(View) error
	RemoveView(id string) error
	AddObject(ViewObject) error
	PutObject(ViewObject) error
	RemoveObject(id string) error
	AddConnection(ViewConnection) error
	PutConnection(ViewConnection) error
	RemoveConnection(id string) error
}
