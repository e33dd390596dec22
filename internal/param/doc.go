// Package param holds parameter definitions and the values a run works with.
//
// A Registry is filled once at startup. It owns the invariants that span
// several definitions: bind names are unique, aliases never collide, and
// switch groups are stored symmetrically, so declaring "a excludes b" is
// enough for b to exclude a as well.
//
// A Store holds the values of one run. Values are cty values coerced to the
// declared type, which lets the same store back both Go handlers and HCL
// expressions (see Store.Variables). Setting a value notifies OnSet
// subscribers; the session uses this to enqueue commands that declare the
// parameter as their trigger.
package param
