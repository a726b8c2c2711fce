// Package csp builds Content-Security-Policy header values.
package csp

import (
	"slices"
	"strings"
)

// directiveOrder fixes the output order so built policies are stable.
var directiveOrder = []string{
	"default-src",
	"script-src",
	"style-src",
	"img-src",
	"font-src",
	"connect-src",
	"object-src",
	"base-uri",
	"form-action",
	"frame-ancestors",
}

// Builder accumulates directives. It is not safe for concurrent use.
type Builder struct {
	directives map[string][]string
	reportOnly bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{directives: make(map[string][]string)}
}

// Directive sets name to sources, replacing earlier values.
func (b *Builder) Directive(name string, sources ...string) *Builder {
	b.directives[name] = sources
	return b
}

func (b *Builder) DefaultSrc(s ...string) *Builder     { return b.Directive("default-src", s...) }
func (b *Builder) ScriptSrc(s ...string) *Builder      { return b.Directive("script-src", s...) }
func (b *Builder) StyleSrc(s ...string) *Builder       { return b.Directive("style-src", s...) }
func (b *Builder) ImgSrc(s ...string) *Builder         { return b.Directive("img-src", s...) }
func (b *Builder) FontSrc(s ...string) *Builder        { return b.Directive("font-src", s...) }
func (b *Builder) ConnectSrc(s ...string) *Builder     { return b.Directive("connect-src", s...) }
func (b *Builder) ObjectSrc(s ...string) *Builder      { return b.Directive("object-src", s...) }
func (b *Builder) BaseURI(s ...string) *Builder        { return b.Directive("base-uri", s...) }
func (b *Builder) FormAction(s ...string) *Builder     { return b.Directive("form-action", s...) }
func (b *Builder) FrameAncestors(s ...string) *Builder { return b.Directive("frame-ancestors", s...) }

// ReportOnly switches HeaderName to the report-only header.
func (b *Builder) ReportOnly(enabled bool) *Builder {
	b.reportOnly = enabled
	return b
}

// Build renders the policy. Known directives come first in a fixed order,
// then custom ones sorted by name. Directives
// without sources are skipped.
func (b *Builder) Build() string {
	parts := make([]string, 0, len(b.directives))
	seen := make(map[string]bool, len(directiveOrder))
	for _, name := range directiveOrder {
		seen[name] = true
		if src := b.directives[name]; len(src) > 0 {
			parts = append(parts, name+" "+strings.Join(src, " "))
		}
	}
	var extra []string
	for name, src := range b.directives {
		if !seen[name] && len(src) > 0 {
			extra = append(extra, name+" "+strings.Join(src, " "))
		}
	}
	slices.Sort(extra)
	return strings.Join(append(parts, extra...), "; ")
}

// HeaderName returns the header the policy belongs in.
func (b *Builder) HeaderName() string {
	if b.reportOnly {
		return "Content-Security-Policy-Report-Only"
	}
	return "Content-Security-Policy"
}

// PagePolicy allows only same-origin scripts, styles and fonts, which is
// what the fact page serves from its embedded static files.
func PagePolicy() *Builder {
	return NewBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'").
		StyleSrc("'self'").
		ImgSrc("'self'", "data:").
		FontSrc("'self'").
		ConnectSrc("'self'").
		ObjectSrc("'none'").
		BaseURI("'self'").
		FormAction("'self'").
		FrameAncestors("'none'")
}

// APIPolicy forbids every resource; JSON and XML responses load nothing.
func APIPolicy() *Builder {
	return NewBuilder().
		DefaultSrc("'none'").
		FrameAncestors("'none'")
}
