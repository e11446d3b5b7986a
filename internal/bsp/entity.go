package bsp

import (
	"strconv"
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/textutil"
)

// Property is a single key/value pair of an entity.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is an ordered list of properties. Duplicate keys are kept in
// Properties; lookups return the first occurrence.
type Entity struct {
	Properties []Property
	first      map[string]string
}

// NewEntity builds an entity from ordered properties.
func NewEntity(props ...Property) Entity {
	e := Entity{
		Properties: props,
		first:      make(map[string]string, len(props)),
	}
	for _, p := range props {
		if _, ok := e.first[p.Key]; !ok {
			e.first[p.Key] = p.Value
		}
	}
	return e
}

// Get returns the first value stored under key.
func (e Entity) Get(key string) (string, bool) {
	v, ok := e.first[key]
	return v, ok
}

// Value returns the first value stored under key, or "".
func (e Entity) Value(key string) string {
	return e.first[key]
}

// Has reports whether key is present.
func (e Entity) Has(key string) bool {
	_, ok := e.first[key]
	return ok
}

// ClassName returns the entity's classname.
func (e Entity) ClassName() string {
	return e.first["classname"]
}

// Unique returns the lookup view: one property per key, first occurrence
// wins, in order of first appearance.
func (e Entity) Unique() []Property {
	seen := make(map[string]struct{}, len(e.Properties))
	out := make([]Property, 0, len(e.first))
	for _, p := range e.Properties {
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// FindEntity returns the first entity with the given classname.
func FindEntity(entities []Entity, classname string) (Entity, bool) {
	for _, e := range entities {
		if e.ClassName() == classname {
			return e, true
		}
	}
	return Entity{}, false
}

// DecodeEntities decodes the entity lump. Records that do not parse are
// skipped and reported in warnings; an unbalanced lump is a structural error.
func DecodeEntities(data []byte) (entities []Entity, warnings []error, err error) {
	const (
		lcurly  = '{'
		rcurly  = '}'
		newline = '\n'
	)

	var (
		acc         []byte
		depth       int
		recordStart int64
	)

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch b {
		case lcurly:
			// A brace that is not followed by a newline is part of a value,
			// typically a file name.
			if i+1 < len(data) && data[i+1] != newline {
				acc = append(acc, b)
				continue
			}
			depth++
			recordStart = int64(i)
		case rcurly:
			if i+1 < len(data) && data[i+1] != newline {
				acc = append(acc, b)
				continue
			}
			depth--
			if depth < 0 {
				return nil, warnings, structuralf(LumpEntities, int64(i), "closing brace without a matching open")
			}

			ent, werr := parseEntityRecord(string(acc), recordStart)
			if werr != nil {
				warnings = append(warnings, werr)
			} else {
				entities = append(entities, ent)
			}
			acc = acc[:0]
		default:
			acc = append(acc, b)
		}
	}

	if depth != 0 {
		return nil, warnings, structuralf(LumpEntities, recordStart, "unbalanced entity lump: %d record(s) left open", depth)
	}
	return entities, warnings, nil
}

func parseEntityRecord(raw string, offset int64) (Entity, error) {
	var props []Property
	for _, line := range splitUnquoted(raw) {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, `"`)
		if len(parts) < 5 {
			return Entity{}, &Error{
				Kind:   ErrRecordMalformed,
				Lump:   LumpEntities,
				Offset: offset,
				Msg:    "line " + strconv.Quote(textutil.Truncate(line, 80)) + " is not a \"key\" \"value\" pair",
			}
		}
		props = append(props, Property{Key: parts[1], Value: parts[3]})
	}

	ent := NewEntity(props...)
	if !ent.Has("classname") {
		return Entity{}, &Error{Kind: ErrRecordMalformed, Lump: LumpEntities, Offset: offset, Msg: "record has no classname"}
	}
	return ent, nil
}

// splitUnquoted splits s on newlines that are not inside a quoted span.
func splitUnquoted(s string) []string {
	var (
		lines   []string
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '\n':
			if !inQuote {
				lines = append(lines, s[start:i])
				start = i + 1
			}
		}
	}
	return append(lines, s[start:])
}
