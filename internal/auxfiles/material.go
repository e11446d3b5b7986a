package auxfiles

import (
	"regexp"
	"strings"
)

var (
	quotedKeyPattern   = regexp.MustCompile(`^"[^"]+"(.*)$`)
	bareKeyPattern     = regexp.MustCompile(`^[^ \t]+(.*)$`)
	quotedValuePattern = regexp.MustCompile(`"([^"]+)"`)
	bareValuePattern   = regexp.MustCompile(`[^ \t]+`)
	slashRunPattern    = regexp.MustCompile(`/+`)
)

// NormalizeMaterial turns a material reference into the form used under
// materials/: forward slashes, no leading materials/ and no extension.
func NormalizeMaterial(ref string) string {
	if i := strings.Index(ref, "//"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.Index(ref, `\\`); i >= 0 {
		ref = ref[:i]
	}
	return cleanMaterial(ref)
}

// materialFromLine extracts the value of a `key value` line, quoted or bare,
// and normalizes it as a material path.
func materialFromLine(line string) string {
	line = strings.Trim(line, " \t")

	var rest string
	if strings.HasPrefix(line, `"`) {
		if m := quotedKeyPattern.FindStringSubmatch(line); m != nil {
			rest = m[1]
		}
	} else if m := bareKeyPattern.FindStringSubmatch(line); m != nil {
		rest = m[1]
	}
	rest = strings.TrimLeft(rest, " \t")

	var value string
	if strings.HasPrefix(rest, `"`) {
		if m := quotedValuePattern.FindStringSubmatch(rest); m != nil {
			value = m[1]
		}
	} else {
		if i := strings.Index(rest, "//"); i >= 0 {
			rest = rest[:i]
		}
		value = bareValuePattern.FindString(rest)
	}

	value = slashRunPattern.ReplaceAllString(strings.ReplaceAll(value, `\`, "/"), "/")
	return cleanMaterial(value)
}

func cleanMaterial(v string) string {
	v = strings.Trim(v, ` /\`)
	v = strings.ReplaceAll(v, `\`, "/")
	v = strings.TrimPrefix(v, "materials/")
	if strings.HasSuffix(v, ".vmt") || strings.HasSuffix(v, ".vtf") {
		v = v[:len(v)-4]
	}
	return v
}

// materialKeywordRefs returns materials/<m>.vmt for every line of text whose
// first token is one of keywords.
func materialKeywordRefs(text string, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		param := strings.TrimSpace(strings.NewReplacer(`"`, " ", "\t", " ").Replace(line))
		lower := strings.ToLower(param)
		for _, k := range keywords {
			if strings.HasPrefix(lower, strings.ToLower(k)+" ") {
				out = append(out, "materials/"+materialFromLine(strings.TrimRight(line, "\r"))+".vmt")
				break
			}
		}
	}
	return out
}
