// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation and the accent-folding
// used to compare place and category names typed by users.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// disallowed matches anything that isn't a letter, digit, whitespace,
	// underscore or hyphen once the input is folded to ASCII.
	disallowed = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators collapses whitespace, underscores and hyphen runs.
	separators = regexp.MustCompile(`[\s_-]+`)

	// letters without a canonical decomposition.
	specialLetters = strings.NewReplacer(
		"ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "ł", "l", "đ", "d", "ħ", "h", "ı", "i", "þ", "th",
	)
)

// Fold lowercases s and strips diacritics, so "Jūrmala" and "jurmala"
// compare equal. Characters outside Latin scripts are kept as-is.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = specialLetters.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Generate creates a URL-friendly slug from the given string.
// Example: "Mobilie telefoni & Aksesuāri" → "mobilie-telefoni-aksesuari"
func Generate(s string) string {
	result := Fold(s)
	result = disallowed.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
