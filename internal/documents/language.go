package documents

import (
	"strings"
	"unicode"
)

var languageAliases = map[string]string{
	"PyPy":    "Python",
	"CPython": "Python",
	"Python":  "Python",
	"C++":     "C++",
	"G++":     "C++",
	"Clang++": "C++",
	"C#":      "C#",
	"Java":    "Java",
	"Kotlin":  "Kotlin",
	"Rust":    "Rust",
	"Go":      "Go",
	"Haskell": "Haskell",
	"Ruby":    "Ruby",
	"OCaml":   "OCaml",
	"Nim":     "Nim",
	"Julia":   "Julia",
	"Swift":   "Swift",
	"Scala":   "Scala",
	"Perl":    "Perl",
	"Crystal": "Crystal",
	"Text":    "Text",
}

// LanguageGroup folds a submission language such as "C++ 20 (gcc 12.2)" or
// "PyPy3 (7.3.0)" into its family ("C++", "Python"). Unknown languages are
// grouped by their leading word.
func LanguageGroup(language string) string {
	name := strings.TrimSpace(language)
	if i := strings.IndexAny(name, " ("); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimRightFunc(name, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	})
	if group, ok := languageAliases[name]; ok {
		return group
	}
	if name == "" {
		return "Other"
	}
	return name
}
