package router

import (
	"fmt"
	"strings"
)

func splitSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// node is one segment position in the pattern trie. A position may have any
// number of static children, at most one ":param" child, and at most one
// "*catchall" child — a catchall always terminates the pattern, consuming
// every remaining segment.
type node[K, Req, Res any] struct {
	static map[string]*node[K, Req, Res]

	paramName  string
	param      *node[K, Req, Res]
	catchall   *route[K, Req, Res]
	catchallAt string

	route *route[K, Req, Res]
}

func newNode[K, Req, Res any]() *node[K, Req, Res] {
	return &node[K, Req, Res]{static: make(map[string]*node[K, Req, Res])}
}

func (n *node[K, Req, Res]) insert(segments []string, rt *route[K, Req, Res]) error {
	if len(segments) == 0 {
		if n.route != nil {
			return &InsertError{Route: rt.pattern, Reason: "a route is already registered at this exact pattern"}
		}
		n.route = rt
		return nil
	}

	seg := segments[0]
	rest := segments[1:]

	switch {
	case strings.HasPrefix(seg, "*"):
		if len(rest) != 0 {
			return &InsertError{Route: rt.pattern, Reason: "a catchall segment must be the last segment in the pattern"}
		}
		if n.catchall != nil {
			return &InsertError{Route: rt.pattern, Reason: "a catchall route is already registered at this position"}
		}
		n.catchall = rt
		n.catchallAt = strings.TrimPrefix(seg, "*")
		return nil

	case strings.HasPrefix(seg, ":"):
		name := strings.TrimPrefix(seg, ":")
		if n.param == nil {
			n.param = newNode[K, Req, Res]()
			n.paramName = name
		} else if n.paramName != name {
			return &InsertError{Route: rt.pattern, Reason: fmt.Sprintf("param name %q conflicts with already-registered %q at this position", name, n.paramName)}
		}
		return n.param.insert(rest, rt)

	default:
		child, ok := n.static[seg]
		if !ok {
			child = newNode[K, Req, Res]()
			n.static[seg] = child
		}
		return child.insert(rest, rt)
	}
}

func (n *node[K, Req, Res]) match(segments []string, params map[string]string) (*route[K, Req, Res], map[string]string, bool) {
	if len(segments) == 0 {
		if n.route != nil {
			return n.route, params, true
		}
		return nil, nil, false
	}

	seg := segments[0]
	rest := segments[1:]

	// Static segments win over a param at the same position, keeping
	// exact matches preferred over pattern matches.
	if child, ok := n.static[seg]; ok {
		if rt, p, ok := child.match(rest, params); ok {
			return rt, p, true
		}
	}

	if n.param != nil {
		next := cloneParams(params)
		next[n.paramName] = seg
		if rt, p, ok := n.param.match(rest, next); ok {
			return rt, p, true
		}
	}

	if n.catchall != nil {
		next := cloneParams(params)
		next[n.catchallAt] = strings.Join(segments, "/")
		return n.catchall, next, true
	}

	return nil, nil, false
}

func (n *node[K, Req, Res]) collectRoutes(acc []*route[K, Req, Res]) []*route[K, Req, Res] {
	if n.route != nil {
		acc = append(acc, n.route)
	}
	if n.catchall != nil {
		acc = append(acc, n.catchall)
	}
	if n.param != nil {
		acc = n.param.collectRoutes(acc)
	}
	for _, child := range n.static {
		acc = child.collectRoutes(acc)
	}
	return acc
}

func cloneParams(params map[string]string) map[string]string {
	next := make(map[string]string, len(params)+1)
	for k, v := range params {
		next[k] = v
	}
	return next
}
