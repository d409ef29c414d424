// Package extract locates and normalizes fields in listing cards and
// article pages. Every extractor is best-effort: a missing field yields an
// empty value, never an error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agentx56431/cei6/records"
)

// Strategy inspects a scope and reports a value when it finds one.
type Strategy[T any] func(scope *goquery.Selection) (T, bool)

// First runs strategies in order and returns the first value found.
func First[T any](scope *goquery.Selection, strategies ...Strategy[T]) (T, bool) {
	var zero T
	if scope == nil || scope.Length() == 0 {
		return zero, false
	}

	for _, s := range strategies {
		if v, ok := s(scope); ok {
			return v, true
		}
	}
	return zero, false
}

// Text returns the whitespace-normalized text of the first node in sel.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return records.CleanText(sel.First().Text())
}

// Attr returns the trimmed value of an attribute on the first node in sel.
func Attr(sel *goquery.Selection, name string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}

// firstText returns the text of the first element matching selector that
// has non-empty text.
func firstText(scope *goquery.Selection, selector string) string {
	var out string
	scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = Text(s)
		return out == ""
	})
	return out
}

// textOf builds a strategy returning the first non-empty text for selector.
func textOf(selector string) Strategy[string] {
	return func(scope *goquery.Selection) (string, bool) {
		t := firstText(scope, selector)
		return t, t != ""
	}
}

// attrOf builds a strategy returning the first non-empty attribute value for
// selector.
func attrOf(selector, attr string) Strategy[string] {
	return func(scope *goquery.Selection) (string, bool) {
		var out string
		scope.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = Attr(s, attr)
			return out == ""
		})
		return out, out != ""
	}
}
