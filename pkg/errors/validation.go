package errors

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// maxRegistryName is the longest name crates.io accepts for a new crate.
const maxRegistryName = 64

// ValidateCrateName applies Cargo's package name rules: a Unicode
// identifier that may also contain '-', not starting with a digit.
// Length is not limited.
func ValidateCrateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "crate name cannot be empty")
	}
	for i, r := range name {
		if i == 0 {
			if !isIdentStart(r) {
				return New(ErrCodeInvalidPackage, "crate name %q cannot start with %q", name, r)
			}
			continue
		}
		if !isIdentContinue(r) && r != '-' {
			return New(ErrCodeInvalidPackage, "crate name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// ValidateRegistryCrateName applies the stricter crates.io rules on top of
// [ValidateCrateName]: ASCII only, starting with a letter, at most 64
// characters.
func ValidateRegistryCrateName(name string) error {
	if err := ValidateCrateName(name); err != nil {
		return err
	}
	if len(name) > maxRegistryName {
		return New(ErrCodeInvalidPackage, "crate name %.16q... is longer than %d characters", name, maxRegistryName)
	}
	for i, r := range name {
		if isASCIILetter(r) || i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '_') {
			continue
		}
		return New(ErrCodeInvalidPackage, "crate name %q is not a valid crates.io name", name)
	}
	return nil
}

// isIdentStart approximates Unicode XID_Start, plus '_'.
func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

// isIdentContinue approximates Unicode XID_Continue.
func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) ||
		unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// ValidatePath checks a slash-separated path relative to a crate root, as
// stored in source_code rows. It must stay inside the crate. Any other byte
// a file system allows in a name, backslashes included, is accepted.
func ValidatePath(p string) error {
	if p == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if path.IsAbs(p) {
		return New(ErrCodeInvalidPath, "path %q must be relative", p)
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path %q escapes the crate root", p)
		}
	}
	return nil
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "parse URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", raw)
	}
	return nil
}
