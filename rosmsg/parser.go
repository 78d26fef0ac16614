package rosmsg

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrParse indicates the message-definition text was syntactically
// invalid.
var ErrParse = errors.New("malformed message definition")

// ErrUnknownType indicates a field referenced a type name that could
// not be resolved against the root type or any embedded MSG: section.
var ErrUnknownType = errors.New("unresolved message type")

// separatorLine matches the line that separates a concatenated
// message-definition document's root definition from its embedded
// `MSG: <type>` sub-definitions (see splitSections). ROS writes a line
// of 80 or more '=' characters between sections.
var separatorLine = regexp.MustCompile(`^={80,}\s*$`)

// fieldLine matches "TYPE NAME" or "TYPE NAME = VALUE", tolerating the
// mixed tab/space separators real recordings contain. Field names
// start with a letter, per the ROS msg grammar (http://wiki.ros.org/msg#Fields).
var fieldLine = regexp.MustCompile(`^([^\s=]+)[ \t]+([a-zA-Z][a-zA-Z0-9_]*)\s*(=\s*(.+))?$`)

// stringConstLine matches a `string NAME = VALUE` constant declaration
// ahead of comment stripping: per the ROS msg grammar, `#` is not a
// comment delimiter inside a string constant's value, unlike every
// other declaration. Matched separately so the literal value — not a
// comment-stripped approximation of it — becomes the constant.
var stringConstLine = regexp.MustCompile(`^string\s+([a-zA-Z][a-zA-Z0-9_]*)\s*=(.*)$`)

// Scope returns the package portion of a qualified ROS type name (e.g.
// "nav_msgs" for "nav_msgs/Odometry"), or "" if typeName carries no
// package prefix.
func Scope(typeName string) string {
	if idx := strings.Index(typeName, "/"); idx >= 0 {
		return typeName[:idx]
	}
	return ""
}

// Parse parses a connection's `message_definition` text into a schema
// tree rooted at rootType (typically the connection's declared
// message type, e.g. "nav_msgs/Odometry").
func Parse(rootType string, definition string) (*Tree, error) {
	sections := splitSections(definition)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: empty definition", ErrParse)
	}
	rootBody := sections[0]
	dependencies := make(map[string]string)
	for _, section := range sections[1:] {
		lines := strings.SplitN(section, "\n", 2)
		header := strings.TrimSpace(lines[0])
		if !strings.HasPrefix(header, "MSG: ") {
			return nil, fmt.Errorf("%w: expected 'MSG: <type>' header, got %q", ErrParse, header)
		}
		typeName := strings.TrimPrefix(header, "MSG: ")
		body := ""
		if len(lines) > 1 {
			body = lines[1]
		}
		dependencies[typeName] = body
	}

	p := &parser{scope: Scope(rootType), dependencies: dependencies, resolving: map[string]bool{}}
	root, err := p.parseObject(rootType, rootBody)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

type parser struct {
	scope        string
	dependencies map[string]string
	resolving    map[string]bool // cycle guard
}

// parseObject parses the body of one MSG section into an object node
// named typeName.
func (p *parser) parseObject(typeName, body string) (*Node, error) {
	if p.resolving[typeName] {
		return nil, fmt.Errorf("%w: cyclic reference to %s", ErrParse, typeName)
	}
	p.resolving[typeName] = true
	defer delete(p.resolving, typeName)

	node := &Node{Kind: KindObject, TypeName: typeName}
	for i, raw := range strings.Split(body, "\n") {
		untrimmed := strings.TrimRight(raw, "\r")
		if m := stringConstLine.FindStringSubmatch(strings.TrimLeft(untrimmed, " \t")); m != nil {
			node.Constants = append(node.Constants, Constant{Name: m[1], Type: String, Value: strings.TrimSpace(m[2])})
			continue
		}

		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matches := fieldLine.FindStringSubmatch(line)
		if matches == nil {
			return nil, fmt.Errorf("%w: malformed declaration on line %d: %q", ErrParse, i+1, raw)
		}
		typeTok, name, constExpr := matches[1], matches[2], matches[4]

		if constExpr != "" {
			constant, err := p.parseConstant(typeTok, name, constExpr)
			if err != nil {
				return nil, err
			}
			node.Constants = append(node.Constants, *constant)
			continue
		}

		field, err := p.parseField(typeTok, name)
		if err != nil {
			return nil, err
		}
		node.Fields = append(node.Fields, *field)
	}
	return node, nil
}

func (p *parser) parseConstant(typeTok, name, valueExpr string) (*Constant, error) {
	prim := normalizePrimitive(Primitive(typeTok))
	if !IsPrimitive(typeTok) {
		return nil, fmt.Errorf("%w: constant %s has non-primitive type %q", ErrParse, name, typeTok)
	}
	return &Constant{Name: name, Type: prim, Value: strings.TrimSpace(valueExpr)}, nil
}

func (p *parser) parseField(typeTok, name string) (*Field, error) {
	baseType, isArray, fixedSize, err := parseArraySuffix(typeTok)
	if err != nil {
		return nil, err
	}

	elemSchema, err := p.resolveType(baseType)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}

	if !isArray {
		return &Field{Name: name, Schema: elemSchema}, nil
	}

	kind := KindArrayPrimitive
	if elemSchema.Kind == KindObject {
		kind = KindArrayObject
	}
	arrayNode := &Node{Kind: kind, FixedSize: fixedSize, Elem: elemSchema}
	return &Field{Name: name, Schema: arrayNode}, nil
}

// resolveType resolves a bare type token (no array brackets) to
// either a primitive leaf node or a parsed object node, per the
// resolution order in spec.md §4.4: exact qualified match, then
// unqualified match against any embedded sub-type, then the
// `Header` -> `std_msgs/Header` special case.
func (p *parser) resolveType(typeTok string) (*Node, error) {
	normalized := normalizePrimitive(Primitive(typeTok))
	if IsPrimitive(string(normalized)) {
		return &Node{Kind: KindPrimitive, Primitive: normalized}, nil
	}

	candidates := []string{typeTok}
	if !strings.Contains(typeTok, "/") && p.scope != "" {
		candidates = append(candidates, p.scope+"/"+typeTok)
	}
	if typeTok == "Header" {
		candidates = append(candidates, "std_msgs/Header")
	}
	for _, c := range candidates {
		if body, ok := p.dependencies[c]; ok {
			return p.parseObject(c, body)
		}
	}
	// Fall back to matching any sub-type by its unqualified suffix. A
	// bag could in principle embed two MSG: sections whose unqualified
	// names collide (e.g. "foo/Status" and "bar/Status"); dependencies
	// is a map, so iteration order is randomized across runs. Collect
	// every match and break the tie deterministically (lowest scoped
	// name wins) instead of letting map order decide.
	unqualified := typeTok
	if idx := strings.LastIndex(typeTok, "/"); idx >= 0 {
		unqualified = typeTok[idx+1:]
	}
	var matches []string
	for depType := range p.dependencies {
		depUnqualified := depType
		if idx := strings.LastIndex(depType, "/"); idx >= 0 {
			depUnqualified = depType[idx+1:]
		}
		if depUnqualified == unqualified {
			matches = append(matches, depType)
		}
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return p.parseObject(matches[0], p.dependencies[matches[0]])
	}
	if typeTok == "Header" {
		return p.parseObject("std_msgs/Header", defaultHeaderDefinition)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeTok)
}

// defaultHeaderDefinition is used only if a bag references `Header`
// but never embeds a `MSG: std_msgs/Header` section of its own (real
// recordings always embed it; this is a defensive fallback so a
// reference to the best-known type never errors spuriously).
const defaultHeaderDefinition = "uint32 seq\ntime stamp\nstring frame_id"

// parseArraySuffix splits "TYPE[]" / "TYPE[N]" / "TYPE" into the base
// type token, whether it's an array, and the fixed size (VariableSize
// if length-prefixed or not an array).
func parseArraySuffix(typeTok string) (baseType string, isArray bool, fixedSize int, err error) {
	open := strings.IndexByte(typeTok, '[')
	if open < 0 {
		return typeTok, false, 0, nil
	}
	close := strings.IndexByte(typeTok, ']')
	if close < open {
		return "", false, 0, fmt.Errorf("%w: malformed array type %q", ErrParse, typeTok)
	}
	baseType = typeTok[:open]
	sizeTok := typeTok[open+1 : close]
	if sizeTok == "" {
		return baseType, true, VariableSize, nil
	}
	n, convErr := strconv.Atoi(sizeTok)
	if convErr != nil {
		return "", false, 0, fmt.Errorf("%w: malformed array size in %q", ErrParse, typeTok)
	}
	return baseType, true, n, nil
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// splitSections splits a message-definition document on separator
// lines of 80+ '=' characters, following the teacher's splitLines
// idiom (github.com/foxglove/mcap/go/ros1msg): everything before the
// first separator is the root definition, and each subsequent chunk
// begins with its own `MSG: <type>` header line.
func splitSections(text string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if separatorLine.MatchString(strings.TrimRight(line, "\r")) {
			sections = append(sections, current.String())
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	sections = append(sections, current.String())
	return sections
}
