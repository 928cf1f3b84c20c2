// Package validator performs source-level lexical and structural checks on
// submitted strategy source text, before it ever reaches the compiler. It
// is the first of two layers of defense: necessary but not sufficient on
// its own, since source-level tricks can sometimes slip past lexical
// rules. The compiled-artifact checks in pkg/compiler are the
// authoritative layer.
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// RequiredContractName is the contract whose inheritance clause
	// checkInheritance inspects. Other top-level contract names are not
	// checked against it.
	RequiredContractName = "Strategy"
	// RequiredBaseContract is the base contract the submission must
	// directly inherit from in non-comment code.
	RequiredBaseContract = "AMMStrategyBase"
	// RequiredInterface is the interface whose ABI the submission's
	// functions must satisfy; also a reserved identifier.
	RequiredInterface = "IAMMStrategy"
)

// reservedIdentifiers are base/interface names a submission must not
// redeclare as its own top-level contract, interface, or library.
var reservedIdentifiers = map[string]bool{
	RequiredBaseContract: true,
	RequiredInterface:    true,
}

// allowedImportBasenames are the only file targets a relative import may
// resolve to. Enumerated explicitly rather than inferred from a
// directory listing.
var allowedImportBasenames = map[string]bool{
	"AMMStrategyBase.sol": true,
	"IAMMStrategy.sol":    true,
}

var (
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

	externalCallRe  = regexp.MustCompile(`\.\s*(call|delegatecall|staticcall|send|transfer)\s*\(`)
	assemblyRe      = regexp.MustCompile(`\bassembly\b`)
	importPathRe    = regexp.MustCompile(`import\s*(?:\{[^}]*\}\s*from\s*)?"([^"]+)"`)
	declarationRe   = regexp.MustCompile(`\b(contract|interface|library)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	inheritanceRe   = regexp.MustCompile(`contract\s+` + RequiredContractName + `\s+is\s+([^{]+)\{`)
	wordBoundaryFmt = `\b%s\b`
)

// Result is the outcome of validating one submission's source text. All
// failures are collected; validation never stops at the first error.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator performs the lexical/structural checks.
type Validator struct{}

// New returns a ready-to-use Validator. Stateless: safe to share and
// reuse across submissions.
func New() *Validator {
	return &Validator{}
}

// Validate runs every rule against source and returns the collected
// result. No rule short-circuits another.
func (v *Validator) Validate(source string) Result {
	var errs []string

	stripped := stripComments(source)

	if externalCallRe.MatchString(stripped) {
		errs = append(errs, "External calls to other contracts are not allowed")
	}
	if assemblyRe.MatchString(stripped) {
		errs = append(errs, "Inline assembly is not allowed")
	}

	errs = append(errs, checkImports(stripped)...)
	errs = append(errs, checkReservedIdentifiers(stripped)...)
	errs = append(errs, checkInheritance(stripped)...)

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// stripComments replaces // line comments and /* */ block comments with
// spaces, preserving line structure so later regexes still operate on
// plausible column/line positions. A dangerous pattern that exists only
// inside a comment is erased and therefore never flagged.
func stripComments(source string) string {
	blanked := blockCommentRe.ReplaceAllStringFunc(source, blankKeepingNewlines)
	blanked = lineCommentRe.ReplaceAllStringFunc(blanked, blankKeepingNewlines)
	return blanked
}

func blankKeepingNewlines(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' {
			b.WriteRune('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// checkImports rejects import paths that are not simple relative paths to
// a whitelisted base file: any ".." segment appearing after a real path
// component is a traversal escaping the strategy directory; a leading run
// of ".." or "." segments that ultimately resolves to a whitelisted
// basename is accepted. Operates on comment-stripped source so an import
// path mentioned only inside a comment is never flagged.
func checkImports(stripped string) []string {
	var errs []string
	for _, m := range importPathRe.FindAllStringSubmatch(stripped, -1) {
		path := m[1]
		if !importPathAllowed(path) {
			errs = append(errs, fmt.Sprintf("import path %q is not allowed", path))
		}
	}
	return errs
}

func importPathAllowed(path string) bool {
	segments := strings.Split(path, "/")
	if len(segments) == 0 {
		return false
	}
	sawRealSegment := false
	for _, seg := range segments[:len(segments)-1] {
		switch seg {
		case "", ".":
			// no-op
		case "..":
			if sawRealSegment {
				return false
			}
		default:
			sawRealSegment = true
		}
	}
	basename := segments[len(segments)-1]
	return allowedImportBasenames[basename]
}

// checkReservedIdentifiers rejects any top-level contract/interface/library
// declaration whose name collides with a reserved base or interface name.
// A mention of a reserved name only as part of an inheritance clause (e.g.
// "contract Strategy is AMMStrategyBase") is not a declaration and is not
// flagged here.
func checkReservedIdentifiers(stripped string) []string {
	var errs []string
	for _, m := range declarationRe.FindAllStringSubmatch(stripped, -1) {
		name := m[2]
		if reservedIdentifiers[name] {
			errs = append(errs, fmt.Sprintf("Redefining reserved identifier %q is not allowed", name))
		}
	}
	return errs
}

// checkInheritance requires the submission to directly declare
// "contract Strategy is AMMStrategyBase" (possibly alongside further
// interfaces) in non-comment code.
func checkInheritance(stripped string) []string {
	m := inheritanceRe.FindStringSubmatch(stripped)
	if m != nil {
		baseListRe := regexp.MustCompile(fmt.Sprintf(wordBoundaryFmt, RequiredBaseContract))
		if baseListRe.MatchString(m[1]) {
			return nil
		}
	}
	return []string{fmt.Sprintf("Strategy contract must inherit from %s", RequiredBaseContract)}
}
