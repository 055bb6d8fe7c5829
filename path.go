package assoc

import (
	"fmt"
	"strconv"
	"strings"
)

type pathSegment struct {
	key     string
	indexes []int
}

// parsePath splits "a.b[0].c" into segments. It accepts the paths used by
// composed change events.
func parsePath(path string) ([]pathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	segments := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		open := strings.IndexByte(part, '[')
		seg := pathSegment{key: part}
		if open >= 0 {
			seg.key = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("%w: %q: unclosed index", ErrInvalidPath, path)
				}
				i, err := strconv.Atoi(rest[1:end])
				if err != nil || i < 0 {
					return nil, fmt.Errorf("%w: %q: bad index %q", ErrInvalidPath, path, rest[1:end])
				}
				seg.indexes = append(seg.indexes, i)
				rest = rest[end+1:]
			}
		}
		if seg.key == "" {
			return nil, fmt.Errorf("%w: %q: empty key", ErrInvalidPath, path)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// GetPath resolves a dotted path such as "controls[0].locations[1].zip".
func (n *Node) GetPath(path string) (any, error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	return n.resolvePath(path, segments)
}

// SetPath sets the attribute addressed by path on the node owning it. The
// last segment must be a plain key.
func (n *Node) SetPath(path string, value any, opts ...SetOption) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}
	last := segments[len(segments)-1]
	if len(last.indexes) > 0 {
		return fmt.Errorf("%w: %q: cannot assign to an index", ErrInvalidPath, path)
	}
	target := n
	if len(segments) > 1 {
		parent, err := n.resolvePath(path, segments[:len(segments)-1])
		if err != nil {
			return err
		}
		node, ok := parent.(*Node)
		if !ok || node == nil {
			return fmt.Errorf("%w: %q: %T has no attributes", ErrInvalidPath, path, parent)
		}
		target = node
	}
	return target.SetKey(last.key, value, opts...)
}

func (n *Node) resolvePath(path string, segments []pathSegment) (any, error) {
	var current any = n
	for _, seg := range segments {
		switch v := current.(type) {
		case *Node:
			if v == nil {
				return nil, fmt.Errorf("%w: %q: nil node before %q", ErrInvalidPath, path, seg.key)
			}
			current = v.attrs[seg.key]
		case map[string]any:
			current = v[seg.key]
		default:
			return nil, fmt.Errorf("%w: %q: %T has no key %q", ErrInvalidPath, path, current, seg.key)
		}
		for _, i := range seg.indexes {
			switch v := current.(type) {
			case *Collection:
				if i >= v.Len() {
					return nil, fmt.Errorf("%w: %q: index %d out of range", ErrInvalidPath, path, i)
				}
				current = v.At(i)
			case []any:
				if i >= len(v) {
					return nil, fmt.Errorf("%w: %q: index %d out of range", ErrInvalidPath, path, i)
				}
				current = v[i]
			default:
				return nil, fmt.Errorf("%w: %q: %T is not indexable", ErrInvalidPath, path, current)
			}
		}
	}
	return current, nil
}
