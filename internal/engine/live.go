package engine

import (
	"archplan/internal/model"
)

// Live validation: each change is checked against the model as it
// stands when the change's turn comes, not against the model at
// submission. Earlier changes in the batch are already visible.

func needElement(api model.API, id string, index int) (model.Element, *ChangeError) {
	el, ok := api.Element(id)
	if !ok {
		return model.Element{}, NewChangeError(CodeReference, index, "element %q does not exist", id)
	}
	return el, nil
}

func needRelationship(api model.API, id string, index int) (model.Relationship, *ChangeError) {
	rel, ok := api.Relationship(id)
	if !ok {
		return model.Relationship{}, NewChangeError(CodeReference, index, "relationship %q does not exist", id)
	}
	return rel, nil
}

func needFolder(api model.API, id string, index int) (model.Folder, *ChangeError) {
	f, ok := api.Folder(id)
	if !ok {
		return model.Folder{}, NewChangeError(CodeReference, index, "folder %q does not exist", id)
	}
	return f, nil
}

func needView(api model.API, id string, index int) (model.View, *ChangeError) {
	v, ok := api.View(id)
	if !ok {
		return model.View{}, NewChangeError(CodeReference, index, "view %q does not exist", id)
	}
	return v, nil
}

func needObject(api model.API, id string, index int) (model.ViewObject, *ChangeError) {
	o, ok := api.Object(id)
	if !ok {
		return model.ViewObject{}, NewChangeError(CodeReference, index, "view object %q does not exist", id)
	}
	return o, nil
}

func needConnection(api model.API, id string, index int) (model.ViewConnection, *ChangeError) {
	conn, ok := api.Connection(id)
	if !ok {
		return model.ViewConnection{}, NewChangeError(CodeReference, index, "view connection %q does not exist", id)
	}
	return conn, nil
}

// needPropertyOwner accepts an element or relationship ID.
func needPropertyOwner(api model.API, id string, index int) *ChangeError {
	if _, ok := api.Element(id); ok {
		return nil
	}
	if _, ok := api.Relationship(id); ok {
		return nil
	}
	return NewChangeError(CodeReference, index, "no element or relationship with id %q", id)
}

// needMovable accepts an element or view ID for folder moves.
func needMovable(api model.API, id string, index int) *ChangeError {
	if _, ok := api.Element(id); ok {
		return nil
	}
	if _, ok := api.View(id); ok {
		return nil
	}
	return NewChangeError(CodeReference, index, "no element or view with id %q", id)
}

// checkEndpoints verifies relationship endpoints refer to elements.
// Relationships, notes and groups cannot anchor a relationship.
func checkEndpoints(api model.API, source, target string, index int) *ChangeError {
	if _, ok := api.Element(source); !ok {
		return NewChangeError(CodeReference, index, "relationship source %q is not an element", source)
	}
	if _, ok := api.Element(target); !ok {
		return NewChangeError(CodeReference, index, "relationship target %q is not an element", target)
	}
	return nil
}

// checkConnectionPlacement verifies both endpoint objects sit on the
// given view and visually anchor the relationship's actual source and
// target elements. Placement must precede connection in the batch.
func checkConnectionPlacement(api model.API, viewID string, rel model.Relationship, srcObjID, dstObjID string, index int) *ChangeError {
	src, cerr := needObject(api, srcObjID, index)
	if cerr != nil {
		return cerr
	}
	dst, cerr := needObject(api, dstObjID, index)
	if cerr != nil {
		return cerr
	}
	if src.View != viewID {
		return NewChangeError(CodeReference, index, "source object %q is not on view %q", srcObjID, viewID)
	}
	if dst.View != viewID {
		return NewChangeError(CodeReference, index, "target object %q is not on view %q", dstObjID, viewID)
	}
	if src.Element != rel.Source {
		return NewChangeError(CodeReference, index,
			"source object %q does not depict the relationship's source element %q", srcObjID, rel.Source)
	}
	if dst.Element != rel.Target {
		return NewChangeError(CodeReference, index,
			"target object %q does not depict the relationship's target element %q", dstObjID, rel.Target)
	}
	return nil
}

// checkNesting verifies child and parent are distinct objects on the
// same view.
func checkNesting(api model.API, childID, parentID string, index int) *ChangeError {
	child, cerr := needObject(api, childID, index)
	if cerr != nil {
		return cerr
	}
	parent, cerr := needObject(api, parentID, index)
	if cerr != nil {
		return cerr
	}
	if childID == parentID {
		return NewChangeError(CodeReference, index, "object %q cannot nest inside itself", childID)
	}
	if child.View != parent.View {
		return NewChangeError(CodeReference, index,
			"objects %q and %q are on different views", childID, parentID)
	}
	return nil
}

// optionalFolder validates a folder reference when present; empty means
// the model root.
func optionalFolder(api model.API, id string, index int) *ChangeError {
	if id == "" {
		return nil
	}
	_, cerr := needFolder(api, id, index)
	return cerr
}

// defaultBounds fills in the standard element-occurrence size when the
// caller gave none.
func defaultBounds(b model.Bounds) model.Bounds {
	if b.W == 0 {
		b.W = 120
	}
	if b.H == 0 {
		b.H = 55
	}
	return b
}
