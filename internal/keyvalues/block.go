package keyvalues

import (
	"io"
	"strconv"
	"strings"
)

// Entry is one stored key/value pair. Key is the stored key, which carries a
// numeric suffix for repeated keys; Name is the key as written in the source.
type Entry struct {
	Key   string
	Name  string
	Value string
}

// Block is a named node holding key/value pairs and child blocks. Keys and
// block names compare case-insensitively.
type Block struct {
	Name    string
	Entries []Entry
	Blocks  []*Block

	// index maps lowercased stored keys to Entries.
	index map[string]int
}

// NewBlock returns an empty block.
func NewBlock(name string) *Block {
	return &Block{Name: name, index: make(map[string]int)}
}

// Set stores value under key. A key already present is stored again under
// key1, key2, ... so every occurrence is kept.
func (b *Block) Set(key, value string) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	stored := key
	for i := 1; ; i++ {
		if _, ok := b.index[strings.ToLower(stored)]; !ok {
			break
		}
		stored = key + strconv.Itoa(i)
	}
	b.index[strings.ToLower(stored)] = len(b.Entries)
	b.Entries = append(b.Entries, Entry{Key: stored, Name: key, Value: value})
}

// Value returns the value stored under key, or def.
func (b *Block) Value(key, def string) string {
	if i, ok := b.index[strings.ToLower(key)]; ok {
		return b.Entries[i].Value
	}
	return def
}

// Values returns every value written under key, in source order.
func (b *Block) Values(key string) []string {
	var out []string
	for _, e := range b.Entries {
		if strings.EqualFold(e.Name, key) {
			out = append(out, e.Value)
		}
	}
	return out
}

// Keys returns the stored keys in insertion order.
func (b *Block) Keys() []string {
	keys := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Child returns the first child with the given name. Names match with or
// without surrounding quotes.
func (b *Block) Child(name string) *Block {
	return b.ChildAny(name)
}

// ChildAny returns the first child whose name is any of names.
func (b *Block) ChildAny(names ...string) *Block {
	for _, c := range b.Blocks {
		for _, n := range names {
			if strings.EqualFold(c.Name, unquote(n)) {
				return c
			}
		}
	}
	return nil
}

// Children returns every child with the given name.
func (b *Block) Children(name string) []*Block {
	var out []*Block
	for _, c := range b.Blocks {
		if strings.EqualFold(c.Name, unquote(name)) {
			out = append(out, c)
		}
	}
	return out
}

// WriteTo serializes the block in the same text grammar, tab indented. An
// unnamed block is written as a bare list of its contents.
func (b *Block) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (b *Block) String() string {
	var sb strings.Builder
	if b.Name == "" {
		b.writeBody(&sb, 0)
	} else {
		b.write(&sb, 0)
	}
	return sb.String()
}

func (b *Block) write(sb *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	sb.WriteString(indent + quote(b.Name) + "\n" + indent + "{\n")
	b.writeBody(sb, depth+1)
	sb.WriteString(indent + "}\n")
}

func (b *Block) writeBody(sb *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, e := range b.Entries {
		sb.WriteString(indent + quote(e.Name) + " " + quote(e.Value) + "\n")
	}
	for _, c := range b.Blocks {
		c.write(sb, depth)
	}
}

func quote(s string) string { return `"` + s + `"` }

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}
