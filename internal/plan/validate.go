package plan

import (
	"fmt"
	"strings"
)

// ValidationError rejects a whole batch before anything is queued. Each
// problem names the offending change by index where one applies.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid batch: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid batch: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate is the static (pre-queue) pass: required fields per kind,
// placeholder uniqueness, and the externally configured size cap. It
// never consults the live model; referential checks happen per change
// immediately before execution.
func Validate(b *Batch, maxChanges int) error {
	var problems []string

	if len(b.Changes) == 0 {
		problems = append(problems, "changes must contain at least one change")
	}
	if maxChanges > 0 && len(b.Changes) > maxChanges {
		problems = append(problems, fmt.Sprintf("batch has %d changes, limit is %d", len(b.Changes), maxChanges))
	}

	seenTemp := make(map[string]int)
	for i, c := range b.Changes {
		at := func(format string, args ...any) {
			problems = append(problems, fmt.Sprintf("change %d (%s): %s", i, c.Kind, fmt.Sprintf(format, args...)))
		}

		if c.TempID != "" {
			if !c.Kind.ProducesID() {
				at("tempId is only allowed on changes that produce an ID")
			} else if prev, dup := seenTemp[c.TempID]; dup {
				at("tempId %q already used by change %d", c.TempID, prev)
			} else {
				seenTemp[c.TempID] = i
			}
		}

		switch c.Kind {
		case KindCreateElement, KindCreateOrGetElement:
			if c.CreateElement.Type == "" {
				at("type is required")
			}
			if c.CreateElement.Name == "" {
				at("name is required")
			}
		case KindUpdateElement:
			if c.UpdateElement.ID.IsZero() {
				at("id is required")
			}
			if c.UpdateElement.Name == nil && c.UpdateElement.Documentation == nil {
				at("at least one of name or documentation is required")
			}
		case KindDeleteElement:
			if c.DeleteElement.ID.IsZero() {
				at("id is required")
			}
		case KindCreateRelationship, KindCreateOrGetRelationship:
			if c.CreateRelationship.Type == "" {
				at("type is required")
			}
			if c.CreateRelationship.Source.IsZero() {
				at("source is required")
			}
			if c.CreateRelationship.Target.IsZero() {
				at("target is required")
			}
		case KindDeleteRelationship:
			if c.DeleteRelationship.ID.IsZero() {
				at("id is required")
			}
		case KindSetProperty:
			if c.SetProperty.ID.IsZero() {
				at("id is required")
			}
			if c.SetProperty.Key == "" {
				at("key is required")
			}
		case KindRemoveProperty:
			if c.RemoveProperty.ID.IsZero() {
				at("id is required")
			}
			if c.RemoveProperty.Key == "" {
				at("key is required")
			}
		case KindMoveToFolder:
			if c.MoveToFolder.ID.IsZero() {
				at("id is required")
			}
			if c.MoveToFolder.Folder.IsZero() {
				at("folder is required")
			}
		case KindCreateFolder:
			if c.CreateFolder.Name == "" {
				at("name is required")
			}
		case KindCreateView:
			if c.CreateView.Name == "" {
				at("name is required")
			}
		case KindDeleteView:
			if c.DeleteView.View.IsZero() {
				at("view is required")
			}
		case KindAddToView:
			if c.AddToView.View.IsZero() {
				at("view is required")
			}
			if c.AddToView.Element.IsZero() {
				at("element is required")
			}
		case KindRemoveFromView:
			if c.RemoveFromView.Object.IsZero() {
				at("object is required")
			}
		case KindAddConnectionToView:
			if c.AddConnectionToView.View.IsZero() {
				at("view is required")
			}
			if c.AddConnectionToView.Relationship.IsZero() {
				at("relationship is required")
			}
			if c.AddConnectionToView.SourceObject.IsZero() {
				at("sourceObject is required")
			}
			if c.AddConnectionToView.TargetObject.IsZero() {
				at("targetObject is required")
			}
		case KindNestInView:
			if c.NestInView.Child.IsZero() {
				at("child is required")
			}
			if c.NestInView.Parent.IsZero() {
				at("parent is required")
			}
		case KindMoveObject:
			if c.MoveObject.Object.IsZero() {
				at("object is required")
			}
		case KindStyleObject:
			if c.StyleObject.Object.IsZero() {
				at("object is required")
			}
		case KindStyleConnection:
			if c.StyleConnection.Connection.IsZero() {
				at("connection is required")
			}
		case KindCreateNote:
			if c.CreateNote.View.IsZero() {
				at("view is required")
			}
			if c.CreateNote.Text == "" {
				at("text is required")
			}
		case KindCreateGroup:
			if c.CreateGroup.View.IsZero() {
				at("view is required")
			}
			if c.CreateGroup.Name == "" {
				at("name is required")
			}
		default:
			at("unknown kind")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
