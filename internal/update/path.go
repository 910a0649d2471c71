package update

import (
	"fmt"
	"strconv"
	"strings"
)

// PathParent is the first segment of a field path. Only these parents are
// addressable; anything else is a direct property of the play itself.
type PathParent string

const (
	ParentNone         PathParent = ""
	ParentTrigger      PathParent = "trigger"
	ParentAssignment   PathParent = "assignment"
	ParentTaskTemplate PathParent = "taskTemplate"
	ParentDependencies PathParent = "dependencies"
)

// FieldPath is the parsed form of the dotted/bracketed wire paths
// ("trigger.workflowId", "dependencies[0].playId"). Paths are parsed once
// here instead of re-split at every mutation site.
type FieldPath struct {
	Parent PathParent
	Field  string
	Index  int // dependency index; meaningful only when Parent is dependencies
}

// ParsePath recognizes exactly the two wire shapes: identifier(.identifier)*
// with at most two segments, and identifier[<int>].identifier for one level
// of array indexing into dependencies.
func ParsePath(path string) (FieldPath, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return FieldPath{}, fmt.Errorf("empty field path")
	}

	if open := strings.IndexByte(path, '['); open >= 0 {
		closing := strings.IndexByte(path, ']')
		if closing < open {
			return FieldPath{}, fmt.Errorf("malformed path %q", path)
		}
		parent := path[:open]
		idx, err := strconv.Atoi(path[open+1 : closing])
		if err != nil || idx < 0 {
			return FieldPath{}, fmt.Errorf("bad array index in path %q", path)
		}
		rest := path[closing+1:]
		if !strings.HasPrefix(rest, ".") || len(rest) < 2 {
			return FieldPath{}, fmt.Errorf("missing field after index in path %q", path)
		}
		if PathParent(parent) != ParentDependencies {
			return FieldPath{}, fmt.Errorf("array indexing is only supported on dependencies, got %q", parent)
		}
		return FieldPath{Parent: ParentDependencies, Field: rest[1:], Index: idx}, nil
	}

	segments := strings.Split(path, ".")
	switch len(segments) {
	case 1:
		return FieldPath{Parent: ParentNone, Field: segments[0]}, nil
	case 2:
		parent := PathParent(segments[0])
		switch parent {
		case ParentTrigger, ParentAssignment, ParentTaskTemplate:
			return FieldPath{Parent: parent, Field: segments[1]}, nil
		default:
			return FieldPath{}, fmt.Errorf("unknown path parent %q", segments[0])
		}
	default:
		return FieldPath{}, fmt.Errorf("path %q has too many segments", path)
	}
}

func (p FieldPath) String() string {
	switch p.Parent {
	case ParentNone:
		return p.Field
	case ParentDependencies:
		return fmt.Sprintf("%s[%d].%s", p.Parent, p.Index, p.Field)
	default:
		return fmt.Sprintf("%s.%s", p.Parent, p.Field)
	}
}
