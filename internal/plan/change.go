package plan

import (
	"encoding/json"
	"fmt"

	"archplan/internal/model"
)

// Kind tags a change with its operation type. The vocabulary is closed;
// parsing rejects anything else.
type Kind string

const (
	KindCreateElement          Kind = "createElement"
	KindUpdateElement          Kind = "updateElement"
	KindDeleteElement          Kind = "deleteElement"
	KindCreateRelationship     Kind = "createRelationship"
	KindDeleteRelationship     Kind = "deleteRelationship"
	KindSetProperty            Kind = "setProperty"
	KindRemoveProperty         Kind = "removeProperty"
	KindMoveToFolder           Kind = "moveToFolder"
	KindCreateFolder           Kind = "createFolder"
	KindCreateView             Kind = "createView"
	KindDeleteView             Kind = "deleteView"
	KindAddToView              Kind = "addToView"
	KindRemoveFromView         Kind = "removeFromView"
	KindAddConnectionToView    Kind = "addConnectionToView"
	KindNestInView             Kind = "nestInView"
	KindMoveObject             Kind = "moveObject"
	KindStyleObject            Kind = "styleObject"
	KindStyleConnection        Kind = "styleConnection"
	KindCreateNote             Kind = "createNote"
	KindCreateGroup            Kind = "createGroup"
	KindCreateOrGetElement     Kind = "createOrGetElement"
	KindCreateOrGetRelationship Kind = "createOrGetRelationship"
)

// Kinds lists the full vocabulary in a stable order.
var Kinds = []Kind{
	KindCreateElement, KindUpdateElement, KindDeleteElement,
	KindCreateRelationship, KindDeleteRelationship,
	KindSetProperty, KindRemoveProperty,
	KindMoveToFolder, KindCreateFolder,
	KindCreateView, KindDeleteView,
	KindAddToView, KindRemoveFromView, KindAddConnectionToView,
	KindNestInView, KindMoveObject,
	KindStyleObject, KindStyleConnection,
	KindCreateNote, KindCreateGroup,
	KindCreateOrGetElement, KindCreateOrGetRelationship,
}

// Valid reports whether k is in the vocabulary.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ProducesID reports whether a successfully executed change of this kind
// yields a new (or reused) entity ID that a tempId may bind to.
func (k Kind) ProducesID() bool {
	switch k {
	case KindCreateElement, KindCreateOrGetElement,
		KindCreateRelationship, KindCreateOrGetRelationship,
		KindCreateFolder, KindCreateView,
		KindAddToView, KindAddConnectionToView,
		KindCreateNote, KindCreateGroup:
		return true
	}
	return false
}

// IsCreate reports whether the duplicate-resolution policy applies: the
// change creates a model entity with an identity key (type + name for
// elements, folders and views; type + endpoints + name for
// relationships). Notes and groups are view decorations without an
// identity key, so duplicates cannot be detected for them.
func (k Kind) IsCreate() bool {
	switch k {
	case KindCreateElement, KindCreateOrGetElement,
		KindCreateRelationship, KindCreateOrGetRelationship,
		KindCreateFolder, KindCreateView:
		return true
	}
	return false
}

// IsCreateOrGet reports whether the kind always resolves duplicates by
// reuse, regardless of configured strategy.
func (k Kind) IsCreateOrGet() bool {
	return k == KindCreateOrGetElement || k == KindCreateOrGetRelationship
}

// Argument structs. Wire fields are flat inside the change object, e.g.
// {"kind":"createElement","tempId":"t1","type":"BusinessActor","name":"A"}.

type CreateElementArgs struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Documentation string `json:"documentation,omitempty"`
	Folder        Ref    `json:"folder,omitempty"`
}

type UpdateElementArgs struct {
	ID            Ref     `json:"id"`
	Name          *string `json:"name,omitempty"`
	Documentation *string `json:"documentation,omitempty"`
}

type DeleteElementArgs struct {
	ID Ref `json:"id"`
}

type CreateRelationshipArgs struct {
	Type          string `json:"type"`
	Name          string `json:"name,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	Source        Ref    `json:"source"`
	Target        Ref    `json:"target"`
}

type DeleteRelationshipArgs struct {
	ID Ref `json:"id"`
}

type SetPropertyArgs struct {
	ID    Ref    `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type RemovePropertyArgs struct {
	ID  Ref    `json:"id"`
	Key string `json:"key"`
}

type MoveToFolderArgs struct {
	ID     Ref `json:"id"`
	Folder Ref `json:"folder"`
}

type CreateFolderArgs struct {
	Name   string `json:"name"`
	Parent Ref    `json:"parent,omitempty"`
}

type CreateViewArgs struct {
	Name   string `json:"name"`
	Folder Ref    `json:"folder,omitempty"`
}

type DeleteViewArgs struct {
	View Ref `json:"view"`
}

type AddToViewArgs struct {
	View    Ref          `json:"view"`
	Element Ref          `json:"element"`
	Bounds  model.Bounds `json:"bounds,omitempty"`
}

type RemoveFromViewArgs struct {
	Object Ref `json:"object"`
}

type AddConnectionToViewArgs struct {
	View         Ref `json:"view"`
	Relationship Ref `json:"relationship"`
	SourceObject Ref `json:"sourceObject"`
	TargetObject Ref `json:"targetObject"`
}

type NestInViewArgs struct {
	Child  Ref `json:"child"`
	Parent Ref `json:"parent"`
}

type MoveObjectArgs struct {
	Object Ref          `json:"object"`
	Bounds model.Bounds `json:"bounds"`
}

type StyleObjectArgs struct {
	Object Ref         `json:"object"`
	Style  model.Style `json:"style"`
}

type StyleConnectionArgs struct {
	Connection Ref         `json:"connection"`
	Style      model.Style `json:"style"`
}

type CreateNoteArgs struct {
	View   Ref          `json:"view"`
	Text   string       `json:"text"`
	Bounds model.Bounds `json:"bounds,omitempty"`
}

type CreateGroupArgs struct {
	View   Ref          `json:"view"`
	Name   string       `json:"name"`
	Bounds model.Bounds `json:"bounds,omitempty"`
}

// Change is one requested mutation. Exactly one argument pointer is set,
// matching Kind. createOrGet kinds share the argument struct of their
// plain create counterpart.
type Change struct {
	Kind        Kind
	TempID      string
	OnDuplicate Strategy // optional per-change override, empty = inherit

	CreateElement       *CreateElementArgs
	UpdateElement       *UpdateElementArgs
	DeleteElement       *DeleteElementArgs
	CreateRelationship  *CreateRelationshipArgs
	DeleteRelationship  *DeleteRelationshipArgs
	SetProperty         *SetPropertyArgs
	RemoveProperty      *RemovePropertyArgs
	MoveToFolder        *MoveToFolderArgs
	CreateFolder        *CreateFolderArgs
	CreateView          *CreateViewArgs
	DeleteView          *DeleteViewArgs
	AddToView           *AddToViewArgs
	RemoveFromView      *RemoveFromViewArgs
	AddConnectionToView *AddConnectionToViewArgs
	NestInView          *NestInViewArgs
	MoveObject          *MoveObjectArgs
	StyleObject         *StyleObjectArgs
	StyleConnection     *StyleConnectionArgs
	CreateNote          *CreateNoteArgs
	CreateGroup         *CreateGroupArgs
}

// changeHeader is the common envelope decoded before kind dispatch.
type changeHeader struct {
	Kind        Kind     `json:"kind"`
	TempID      string   `json:"tempId,omitempty"`
	OnDuplicate Strategy `json:"onDuplicate,omitempty"`
}

// UnmarshalJSON decodes the envelope, then the kind-specific arguments
// from the same flat object.
func (c *Change) UnmarshalJSON(data []byte) error {
	var hdr changeHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return fmt.Errorf("change envelope: %w", err)
	}
	if hdr.Kind == "" {
		return fmt.Errorf("change is missing required field \"kind\"")
	}
	if !hdr.Kind.Valid() {
		return fmt.Errorf("unknown change kind %q", hdr.Kind)
	}
	if hdr.OnDuplicate != "" && !hdr.OnDuplicate.Valid() {
		return fmt.Errorf("unknown duplicate strategy %q", hdr.OnDuplicate)
	}

	*c = Change{Kind: hdr.Kind, TempID: hdr.TempID, OnDuplicate: hdr.OnDuplicate}

	decode := func(dst any) error {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("%s arguments: %w", hdr.Kind, err)
		}
		return nil
	}

	switch hdr.Kind {
	case KindCreateElement, KindCreateOrGetElement:
		c.CreateElement = &CreateElementArgs{}
		return decode(c.CreateElement)
	case KindUpdateElement:
		c.UpdateElement = &UpdateElementArgs{}
		return decode(c.UpdateElement)
	case KindDeleteElement:
		c.DeleteElement = &DeleteElementArgs{}
		return decode(c.DeleteElement)
	case KindCreateRelationship, KindCreateOrGetRelationship:
		c.CreateRelationship = &CreateRelationshipArgs{}
		return decode(c.CreateRelationship)
	case KindDeleteRelationship:
		c.DeleteRelationship = &DeleteRelationshipArgs{}
		return decode(c.DeleteRelationship)
	case KindSetProperty:
		c.SetProperty = &SetPropertyArgs{}
		return decode(c.SetProperty)
	case KindRemoveProperty:
		c.RemoveProperty = &RemovePropertyArgs{}
		return decode(c.RemoveProperty)
	case KindMoveToFolder:
		c.MoveToFolder = &MoveToFolderArgs{}
		return decode(c.MoveToFolder)
	case KindCreateFolder:
		c.CreateFolder = &CreateFolderArgs{}
		return decode(c.CreateFolder)
	case KindCreateView:
		c.CreateView = &CreateViewArgs{}
		return decode(c.CreateView)
	case KindDeleteView:
		c.DeleteView = &DeleteViewArgs{}
		return decode(c.DeleteView)
	case KindAddToView:
		c.AddToView = &AddToViewArgs{}
		return decode(c.AddToView)
	case KindRemoveFromView:
		c.RemoveFromView = &RemoveFromViewArgs{}
		return decode(c.RemoveFromView)
	case KindAddConnectionToView:
		c.AddConnectionToView = &AddConnectionToViewArgs{}
		return decode(c.AddConnectionToView)
	case KindNestInView:
		c.NestInView = &NestInViewArgs{}
		return decode(c.NestInView)
	case KindMoveObject:
		c.MoveObject = &MoveObjectArgs{}
		return decode(c.MoveObject)
	case KindStyleObject:
		c.StyleObject = &StyleObjectArgs{}
		return decode(c.StyleObject)
	case KindStyleConnection:
		c.StyleConnection = &StyleConnectionArgs{}
		return decode(c.StyleConnection)
	case KindCreateNote:
		c.CreateNote = &CreateNoteArgs{}
		return decode(c.CreateNote)
	case KindCreateGroup:
		c.CreateGroup = &CreateGroupArgs{}
		return decode(c.CreateGroup)
	default:
		return fmt.Errorf("unknown change kind %q", hdr.Kind)
	}
}
