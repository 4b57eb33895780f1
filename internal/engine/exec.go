package engine

import (
	"fmt"

	"archplan/internal/model"
	"archplan/internal/plan"
)

// executor walks one batch change by change against the live model.
// Every successful mutation goes through a command that is applied
// immediately and appended to the operation's compound, so later
// changes observe earlier ones and the whole batch reverts as one
// undo entry.
type executor struct {
	api      model.API
	temps    *tempTable
	idgen    IDGenerator
	batch    *plan.Batch
	fallback plan.Strategy
	compound *model.Compound
	results  []plan.ChangeResult
}

func newExecutor(api model.API, batch *plan.Batch, idgen IDGenerator, fallback plan.Strategy, label string) *executor {
	return &executor{
		api:      api,
		temps:    newTempTable(batch),
		idgen:    idgen,
		batch:    batch,
		fallback: fallback,
		compound: model.NewCompound(label),
		results:  make([]plan.ChangeResult, 0, len(batch.Changes)),
	}
}

func (x *executor) fail(index int, c *plan.Change, cerr *ChangeError) {
	x.results = append(x.results, plan.ChangeResult{
		Index:   index,
		Kind:    c.Kind,
		Outcome: plan.OutcomeFailed,
		Reason:  cerr.Error(),
	})
}

func (x *executor) skip(index int, c *plan.Change, reason string) {
	x.results = append(x.results, plan.ChangeResult{
		Index:   index,
		Kind:    c.Kind,
		Outcome: plan.OutcomeSkipped,
		Reason:  reason,
	})
}

func (x *executor) executed(index int, c *plan.Change, producedID, entityKind, reason string) {
	x.results = append(x.results, plan.ChangeResult{
		Index:      index,
		Kind:       c.Kind,
		Outcome:    plan.OutcomeExecuted,
		Reason:     reason,
		ProducedID: producedID,
	})
	if producedID != "" {
		x.temps.bind(c.TempID, producedID, entityKind)
	}
}

// run applies cmd and records it in the compound. A failure here is an
// internal fault: the change was validated against the live model, so
// the mutation layer rejecting it means engine and model disagree.
func (x *executor) run(cmd model.Command, index int) error {
	if err := cmd.Apply(x.api); err != nil {
		return NewChangeError(CodeInternal, index, "applying %s: %v", cmd.Label(), err)
	}
	x.compound.Append(cmd)
	return nil
}

func (x *executor) resolve(r plan.Ref, index int) (string, *ChangeError) {
	return x.temps.resolve(r, index)
}

// resolveDuplicate applies the duplicate policy to a create change that
// matched an existing entity. It returns the name to create under and
// whether the change is already settled (skipped or reused).
func (x *executor) resolveDuplicate(index int, c *plan.Change, base, entityKind string,
	match duplicateMatch, found bool, taken func(string) bool) (string, bool) {

	if !found {
		return base, false
	}
	switch effectiveStrategy(c, x.batch, x.fallback) {
	case plan.StrategyReuse:
		x.executed(index, c, match.id, entityKind,
			fmt.Sprintf("reused existing %s %q", entityKind, match.name))
		return "", true
	case plan.StrategyRename:
		return renameFor(base, taken), false
	default:
		x.skip(index, c, fmt.Sprintf("%s: %s %q already exists as %s",
			CodeDuplicate, entityKind, match.name, match.id))
		return "", true
	}
}

// applyChange executes one change. The returned error is non-nil only
// for internal faults, which escalate the whole operation; reference
// and duplicate problems are recorded in the change's own result.
func (x *executor) applyChange(index int, c *plan.Change) error {
	switch c.Kind {

	case plan.KindCreateElement, plan.KindCreateOrGetElement:
		args := c.CreateElement
		folder, cerr := x.resolve(args.Folder, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := optionalFolder(x.api, folder, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		name := normalizeName(args.Name)
		match, found := findDuplicateElement(x.api, args.Type, name)
		name, done := x.resolveDuplicate(index, c, name, "element", match, found, func(cand string) bool {
			_, taken := x.api.FindElement(args.Type, cand)
			return taken
		})
		if done {
			return nil
		}
		el := model.Element{
			ID:            x.idgen.NewID(),
			Type:          args.Type,
			Name:          name,
			Documentation: args.Documentation,
			Folder:        folder,
		}
		if err := x.run(model.NewAddElement(el), index); err != nil {
			return err
		}
		x.executed(index, c, el.ID, "element", "")
		return nil

	case plan.KindUpdateElement:
		args := c.UpdateElement
		id, cerr := x.resolve(args.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		el, cerr := needElement(x.api, id, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if args.Name != nil {
			el.Name = normalizeName(*args.Name)
		}
		if args.Documentation != nil {
			el.Documentation = *args.Documentation
		}
		if err := x.run(model.NewUpdateElement(el), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindDeleteElement:
		id, cerr := x.resolve(c.DeleteElement.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needElement(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewDeleteElement(id), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindCreateRelationship, plan.KindCreateOrGetRelationship:
		args := c.CreateRelationship
		source, cerr := x.resolve(args.Source, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		target, cerr := x.resolve(args.Target, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := checkEndpoints(x.api, source, target, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		name := normalizeName(args.Name)
		match, found := findDuplicateRelationship(x.api, args.Type, source, target, name)
		name, done := x.resolveDuplicate(index, c, name, "relationship", match, found, func(cand string) bool {
			_, taken := x.api.FindRelationship(args.Type, source, target, cand)
			return taken
		})
		if done {
			return nil
		}
		rel := model.Relationship{
			ID:            x.idgen.NewID(),
			Type:          args.Type,
			Name:          name,
			Documentation: args.Documentation,
			Source:        source,
			Target:        target,
		}
		if err := x.run(model.NewAddRelationship(rel), index); err != nil {
			return err
		}
		x.executed(index, c, rel.ID, "relationship", "")
		return nil

	case plan.KindDeleteRelationship:
		id, cerr := x.resolve(c.DeleteRelationship.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needRelationship(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewDeleteRelationship(id), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindSetProperty:
		args := c.SetProperty
		id, cerr := x.resolve(args.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := needPropertyOwner(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewSetProperty(id, args.Key, args.Value), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindRemoveProperty:
		args := c.RemoveProperty
		id, cerr := x.resolve(args.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := needPropertyOwner(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewRemoveProperty(id, args.Key), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindMoveToFolder:
		args := c.MoveToFolder
		id, cerr := x.resolve(args.ID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		folder, cerr := x.resolve(args.Folder, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := needMovable(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := optionalFolder(x.api, folder, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewMoveToFolder(id, folder), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindCreateFolder:
		args := c.CreateFolder
		parent, cerr := x.resolve(args.Parent, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := optionalFolder(x.api, parent, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		name := normalizeName(args.Name)
		match, found := findDuplicateFolder(x.api, name, parent)
		name, done := x.resolveDuplicate(index, c, name, "folder", match, found, func(cand string) bool {
			_, taken := x.api.FindFolder(cand, parent)
			return taken
		})
		if done {
			return nil
		}
		f := model.Folder{ID: x.idgen.NewID(), Name: name, Parent: parent}
		if err := x.run(model.NewAddFolder(f), index); err != nil {
			return err
		}
		x.executed(index, c, f.ID, "folder", "")
		return nil

	case plan.KindCreateView:
		args := c.CreateView
		folder, cerr := x.resolve(args.Folder, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := optionalFolder(x.api, folder, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		name := normalizeName(args.Name)
		match, found := findDuplicateView(x.api, name)
		name, done := x.resolveDuplicate(index, c, name, "view", match, found, func(cand string) bool {
			_, taken := x.api.FindView(cand)
			return taken
		})
		if done {
			return nil
		}
		v := model.View{ID: x.idgen.NewID(), Name: name, Folder: folder}
		if err := x.run(model.NewAddView(v), index); err != nil {
			return err
		}
		x.executed(index, c, v.ID, "view", "")
		return nil

	case plan.KindDeleteView:
		id, cerr := x.resolve(c.DeleteView.View, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needView(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewDeleteView(id), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindAddToView:
		args := c.AddToView
		view, cerr := x.resolve(args.View, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		element, cerr := x.resolve(args.Element, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needView(x.api, view, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needElement(x.api, element, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		obj := model.ViewObject{
			ID:      x.idgen.NewID(),
			View:    view,
			Kind:    model.ObjectElement,
			Element: element,
			Bounds:  defaultBounds(args.Bounds),
		}
		if err := x.run(model.NewAddObject(obj), index); err != nil {
			return err
		}
		x.executed(index, c, obj.ID, "object", "")
		return nil

	case plan.KindRemoveFromView:
		id, cerr := x.resolve(c.RemoveFromView.Object, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needObject(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewRemoveObject(id), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindAddConnectionToView:
		args := c.AddConnectionToView
		view, cerr := x.resolve(args.View, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		relID, cerr := x.resolve(args.Relationship, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		srcObj, cerr := x.resolve(args.SourceObject, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		dstObj, cerr := x.resolve(args.TargetObject, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needView(x.api, view, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		rel, cerr := needRelationship(x.api, relID, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := checkConnectionPlacement(x.api, view, rel, srcObj, dstObj, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		conn := model.ViewConnection{
			ID:           x.idgen.NewID(),
			View:         view,
			Relationship: relID,
			SourceObject: srcObj,
			TargetObject: dstObj,
		}
		if err := x.run(model.NewAddConnection(conn), index); err != nil {
			return err
		}
		x.executed(index, c, conn.ID, "connection", "")
		return nil

	case plan.KindNestInView:
		args := c.NestInView
		child, cerr := x.resolve(args.Child, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		parent, cerr := x.resolve(args.Parent, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if cerr := checkNesting(x.api, child, parent, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewNestObject(child, parent), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindMoveObject:
		args := c.MoveObject
		id, cerr := x.resolve(args.Object, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needObject(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewMoveObject(id, args.Bounds), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindStyleObject:
		args := c.StyleObject
		id, cerr := x.resolve(args.Object, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needObject(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewStyleObject(id, args.Style), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindStyleConnection:
		args := c.StyleConnection
		id, cerr := x.resolve(args.Connection, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needConnection(x.api, id, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if err := x.run(model.NewStyleConnection(id, args.Style), index); err != nil {
			return err
		}
		x.executed(index, c, "", "", "")
		return nil

	case plan.KindCreateNote:
		args := c.CreateNote
		view, cerr := x.resolve(args.View, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needView(x.api, view, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		obj := model.ViewObject{
			ID:     x.idgen.NewID(),
			View:   view,
			Kind:   model.ObjectNote,
			Text:   args.Text,
			Bounds: defaultBounds(args.Bounds),
		}
		if err := x.run(model.NewAddObject(obj), index); err != nil {
			return err
		}
		x.executed(index, c, obj.ID, "object", "")
		return nil

	case plan.KindCreateGroup:
		args := c.CreateGroup
		view, cerr := x.resolve(args.View, index)
		if cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		if _, cerr := needView(x.api, view, index); cerr != nil {
			x.fail(index, c, cerr)
			return nil
		}
		obj := model.ViewObject{
			ID:     x.idgen.NewID(),
			View:   view,
			Kind:   model.ObjectGroup,
			Name:   normalizeName(args.Name),
			Bounds: defaultBounds(args.Bounds),
		}
		if err := x.run(model.NewAddObject(obj), index); err != nil {
			return err
		}
		x.executed(index, c, obj.ID, "object", "")
		return nil
	}

	return NewChangeError(CodeInternal, index, "unhandled change kind %q", c.Kind)
}
