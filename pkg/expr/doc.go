// Package expr parses, validates and renders the small arithmetic
// language used in node attributes.
//
// An expression is a sum of products of signed powers over numbers,
// identifiers, parenthesised groups, absolute-value bars and a fixed set of
// unary functions. Parsing yields an AST (Node). Validate checks every
// identifier against a Scope and Render serialises the AST to WGSL text
// with identifiers rewritten into the kernel's naming scheme. Eval runs the
// same AST on the host.
package expr
