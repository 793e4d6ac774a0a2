// Package surface provides themeable surfaces: class lists that carry theme
// markers and report mutations to passive observers. A surface stands in for
// the root element of a document; it is injected into the controller rather
// than looked up globally.
package surface
