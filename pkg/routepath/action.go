package routepath

import (
	"net/url"
	"sort"
	"strings"
)

// ActionParamPrefix prefixes the query parameter naming an action.
const ActionParamPrefix = "action."

// ActionPath returns the submission path of an action:
//
//	basePath + "?action." + name            (no key)
//	basePath + "?action." + name + "=" + key
//
// The key is used verbatim.
func ActionPath(basePath, name, key string) string {
	p := basePath + "?" + ActionParamPrefix + name
	if key != "" {
		p += "=" + key
	}
	return p
}

// ActionID identifies an action instance: the name, or "name=key" when a
// key is set.
func ActionID(name, key string) string {
	if key == "" {
		return name
	}
	return name + "=" + key
}

// ParseAction finds which of names is addressed by query. Names are tried
// in order and the first one whose "action.<name>" parameter is present
// wins. key is the parameter's value ("" when it has none).
func ParseAction(query url.Values, names []string) (name, key string, ok bool) {
	for _, n := range names {
		vals, present := query[ActionParamPrefix+n]
		if !present {
			continue
		}
		if len(vals) > 0 {
			key = vals[0]
		}
		return n, key, true
	}
	return "", "", false
}

// RequestedActions lists the action names present in query in sorted
// order, for error reporting when none of them is registered.
func RequestedActions(query url.Values) []string {
	var out []string
	for param := range query {
		if name, found := strings.CutPrefix(param, ActionParamPrefix); found && name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
