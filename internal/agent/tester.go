package agent

import (
	"fmt"
	"go/parser"
	"go/token"
	"strings"
)

// Tester validates generated code and produces a QA report.
type Tester struct {
	language string
}

// NewTester creates the Tester agent for the given target language.
func NewTester(language string) *Tester {
	if language == "" {
		language = "python"
	}
	return &Tester{language: language}
}

// Validate checks the generated code and returns whether it passed along
// with a human-readable report.
func (t *Tester) Validate(code string) (bool, string) {
	if strings.TrimSpace(code) == "" {
		return false, "Error: no code provided for validation."
	}

	if err := t.checkSyntax(code); err != nil {
		return false, fmt.Sprintf("Syntax error: %v", err)
	}

	var report []string
	report = append(report, "Syntax check: PASSED")

	lowered := strings.ToLower(code)
	if strings.Contains(lowered, "login") || strings.Contains(lowered, "auth") {
		report = append(report, "Context verification: contains relevant keywords (login/auth)")
	}

	lines := strings.Count(code, "\n") + 1
	if lines > 5 {
		report = append(report, fmt.Sprintf("Complexity: code has %d lines (satisfactory)", lines))
	}

	return true, strings.Join(report, "\n")
}

// checkSyntax parses Go precisely and falls back to structural checks for
// other languages; a full parser per target language is out of scope.
func (t *Tester) checkSyntax(code string) error {
	if t.language == "go" {
		fset := token.NewFileSet()
		src := code
		if !strings.Contains(code, "package ") {
			src = "package main\n\n" + code
		}
		if _, err := parser.ParseFile(fset, "generated.go", src, 0); err != nil {
			return err
		}
		return nil
	}
	return checkBalance(code)
}

// checkBalance verifies brackets and quotes pair up, ignoring content inside
// string literals.
func checkBalance(code string) error {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}

	var inString rune
	var escaped bool
	line := 1

	for _, r := range code {
		if r == '\n' {
			line++
			if inString == '\'' || inString == '"' {
				inString = 0 // unterminated single-line string; let it slide
			}
			escaped = false
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if inString != 0 {
			if r == inString {
				inString = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			inString = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return fmt.Errorf("unbalanced %q at line %d", r, line)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

// GenerateTests emits a basic test suite for the snippet.
func (t *Tester) GenerateTests(code string) string {
	switch t.language {
	case "go":
		return goTestTemplate
	default:
		return fmt.Sprintf(pythonTestTemplate, pythonQuote(code))
	}
}

const goTestTemplate = `package main

import "testing"

func TestSmoke(t *testing.T) {
	// Basic smoke test for the generated code
	if 1 != 1 {
		t.Fatal("arithmetic is broken")
	}
}
`

const pythonTestTemplate = `import pytest


def test_syntax_integrity():
    import ast
    ast.parse(%s)


def test_placeholder():
    assert 1 == 1  # Basic smoke test
`

// pythonQuote renders a Go string as a Python string literal.
func pythonQuote(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		"\n", "\\n",
		"\r", "\\r",
		"\t", "\\t",
	)
	return "'" + replacer.Replace(s) + "'"
}
