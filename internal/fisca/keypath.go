package fisca

import "strings"

// KeyPath is the decoded form of a dotted mapping string such as
// "persons.personA.age". The last segment is always the variable; the
// leading segments name the group entity and entity the variable belongs to.
type KeyPath struct {
	Variable    string
	Entity      string
	GroupEntity string

	// Path holds every segment in document order, variable included.
	// Parents is Path without its final segment.
	Path    []string
	Parents []string
}

// ParseKeyPath decodes a dotted mapping string.
//
// The empty string decodes to variable "", path [""] and no parents. Unset
// mapping configuration produces exactly that input, so the degenerate shape
// is load-bearing.
func ParseKeyPath(mapping string) KeyPath {
	segments := strings.Split(mapping, ".")

	kp := KeyPath{
		Path:     segments,
		Variable: segments[len(segments)-1],
		Parents:  segments[:len(segments)-1],
	}
	if len(kp.Parents) > 0 {
		kp.GroupEntity = kp.Parents[0]
	}
	if len(kp.Parents) > 1 {
		kp.Entity = kp.Parents[1]
	}
	return kp
}

// CombineKeyPath joins a group entity, entity and variable into a dotted
// mapping string. It is the inverse of ParseKeyPath for the three-segment
// case.
func CombineKeyPath(groupEntity, entity, variable string) string {
	return strings.Join([]string{groupEntity, entity, variable}, ".")
}

// DottedPath joins path segments into a dotted string.
func DottedPath(path []string) string {
	return strings.Join(path, ".")
}
