// Package keyvalues reads the brace-delimited key/value text format used by
// descriptor files such as radar overviews.
package keyvalues

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// tokenPattern matches a quoted string or a run of non-space characters.
var tokenPattern = regexp.MustCompile(`"(.*?)"|(\S+)`)

// ParseFile parses the file at path into an unnamed root block.
func ParseFile(path string) (*Block, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyvalues file: %w", err)
	}
	defer file.Close()

	return Parse(file, "")
}

// ParseString parses s into a root block with the given name.
func ParseString(s, name string) (*Block, error) {
	return Parse(strings.NewReader(s), name)
}

// Parse reads r into a root block with the given name. A line containing
// "{" opens a child named by the text before the brace or, when there is
// none, by the previous line. A line containing "}" closes the current block.
// Lines with exactly two tokens are key/value pairs; everything else is
// ignored.
func Parse(r io.Reader, name string) (*Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	root := parseBlock(scanner, name)
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan keyvalues: %w", err)
	}
	return root, nil
}

func parseBlock(scanner *bufio.Scanner, name string) *Block {
	block := NewBlock(unquote(name))

	prev := ""
	for scanner.Scan() {
		line := stripComment(scanner.Text())

		if i := indexUnquoted(line, '{'); i >= 0 {
			childName := strings.TrimSpace(line[:i])
			if childName == "" {
				childName = prev
			}
			if rest := line[i+1:]; indexUnquoted(rest, '}') >= 0 {
				child := NewBlock(unquote(childName))
				setPair(child, rest[:indexUnquoted(rest, '}')])
				block.Blocks = append(block.Blocks, child)
			} else {
				block.Blocks = append(block.Blocks, parseBlock(scanner, childName))
			}
			prev = ""
			continue
		}
		if indexUnquoted(line, '}') >= 0 {
			return block
		}

		setPair(block, line)

		if strings.TrimSpace(line) != "" {
			prev = line
		}
	}

	return block
}

// setPair stores line as a key/value pair when it holds exactly two tokens.
func setPair(b *Block, line string) {
	tokens := tokenPattern.FindAllString(line, -1)
	if len(tokens) == 2 {
		b.Set(strings.ReplaceAll(tokens[0], `"`, ""), strings.ReplaceAll(tokens[1], `"`, ""))
	}
}

// indexUnquoted returns the index of the first ch outside quotes, or -1.
func indexUnquoted(line string, ch byte) int {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ch:
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

// stripComment drops a // comment that is not inside quotes.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '/':
			if !inQuote && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}
	return line
}
