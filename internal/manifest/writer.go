package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteAddList writes the packer's add-list format: an internal path line
// followed by an external path line, for every side-car file and then for
// every texture, model and sound reference found under one of roots. The
// first root holding a reference wins.
func WriteAddList(w io.Writer, m *Manifest, roots []string) (int, error) {
	written := 0
	seen := make(map[string]struct{})

	emit := func(internal, external string) error {
		key := strings.ToLower(internal)
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", internal, external); err != nil {
			return fmt.Errorf("write add-list entry: %w", err)
		}
		written++
		return nil
	}

	for _, f := range m.files {
		if err := emit(f.Internal, f.External); err != nil {
			return written, err
		}
	}

	for _, set := range [][]string{m.textures, m.models, m.sounds} {
		for _, ref := range set {
			external, ok := locate(roots, ref)
			if !ok {
				continue
			}
			if err := emit(ref, external); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// WriteJSON writes the whole manifest as indented JSON.
func WriteJSON(w io.Writer, m *Manifest) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func locate(roots []string, rel string) (string, bool) {
	for _, root := range roots {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
