package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// Stylesheet compiles the indentation based stylesheet syntax to CSS.
//
//	// comment
//	$accent = #c00
//	body
//	  margin 0
//	  h1
//	    color $accent
//	  &.dark
//	    color white
//
// A line followed by a more indented line is a selector; nested selectors are
// combined with their parent, "&" standing for the parent selector. Other
// lines are declarations written as "name value" or "name: value". Top-level
// at-rules without a block are copied through.
type Stylesheet struct{}

var (
	variableLine = regexp.MustCompile(`^\$([A-Za-z_][\w-]*)\s*=\s*(.+?);?$`)
	variableRef  = regexp.MustCompile(`\$([A-Za-z_][\w-]*)`)
)

type styleLine struct {
	number int
	indent int
	text   string
}

type styleRule struct {
	selectors    []string
	declarations []string
}

type styleScope struct {
	indent int
	rule   *styleRule
}

// Render implements Renderer.
func (Stylesheet) Render(_ context.Context, req Request) (*Result, error) {
	css, err := CompileStylesheet(req.Source)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "failed to compile stylesheet").
			WithContext("path", req.SourcePath).
			Build()
	}
	return &Result{Content: css}, nil
}

// CompileStylesheet converts stylesheet source to CSS.
func CompileStylesheet(source []byte) ([]byte, error) {
	lines, err := styleLines(source)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string)
	var (
		atRules []string
		rules   []*styleRule
		stack   []styleScope
	)

	for i, line := range lines {
		if m := variableLine.FindStringSubmatch(line.text); m != nil {
			vars[m[1]] = expandVariables(strings.TrimSpace(m[2]), vars)
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].indent >= line.indent {
			stack = stack[:len(stack)-1]
		}

		opensBlock := i+1 < len(lines) && lines[i+1].indent > line.indent
		if opensBlock {
			var parents []string
			if len(stack) > 0 {
				parents = stack[len(stack)-1].rule.selectors
			}
			rule := &styleRule{selectors: combineSelectors(parents, splitSelectors(line.text))}
			rules = append(rules, rule)
			stack = append(stack, styleScope{indent: line.indent, rule: rule})
			continue
		}

		if len(stack) == 0 {
			if strings.HasPrefix(line.text, "@") {
				atRules = append(atRules, strings.TrimSuffix(expandVariables(line.text, vars), ";")+";")
				continue
			}
			return nil, fmt.Errorf("line %d: declaration outside of a selector: %q", line.number, line.text)
		}

		decl, err := parseDeclaration(line.text, vars)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.number, err)
		}
		top := stack[len(stack)-1].rule
		top.declarations = append(top.declarations, decl)
	}

	var out bytes.Buffer
	for _, at := range atRules {
		out.WriteString(at)
		out.WriteByte('\n')
	}
	for _, rule := range rules {
		if len(rule.declarations) == 0 {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.Join(rule.selectors, ",\n"))
		out.WriteString(" {\n")
		for _, d := range rule.declarations {
			out.WriteString("  ")
			out.WriteString(d)
			out.WriteString(";\n")
		}
		out.WriteString("}\n")
	}
	return out.Bytes(), nil
}

func styleLines(source []byte) ([]styleLine, error) {
	var lines []styleLine
	scanner := bufio.NewScanner(bytes.NewReader(source))
	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		lines = append(lines, styleLine{
			number: n,
			indent: indentWidth(raw[:len(raw)-len(trimmed)]),
			text:   trimmed,
		})
	}
	return lines, scanner.Err()
}

// indentWidth counts a tab as two spaces.
func indentWidth(prefix string) int {
	w := 0
	for _, r := range prefix {
		if r == '\t' {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func splitSelectors(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func combineSelectors(parents, children []string) []string {
	if len(parents) == 0 {
		return children
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return out
}

func parseDeclaration(text string, vars map[string]string) (string, error) {
	text = strings.TrimSuffix(text, ";")
	var name, value string
	if i := strings.IndexAny(text, ": \t"); i > 0 {
		name = text[:i]
		value = strings.TrimLeft(text[i+1:], ": \t")
	}
	if name == "" || value == "" {
		return "", fmt.Errorf("malformed declaration %q", text)
	}
	return name + ": " + expandVariables(value, vars), nil
}

func expandVariables(value string, vars map[string]string) string {
	return variableRef.ReplaceAllStringFunc(value, func(ref string) string {
		if v, ok := vars[ref[1:]]; ok {
			return v
		}
		return ref
	})
}
