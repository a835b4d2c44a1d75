// Package preview decides how a story link is answered.
//
// A Classifier looks at the caller's User-Agent and reports whether it is a
// link-preview crawler. A Resolver looks up the approved story for a slug,
// counts the view, and either renders a small HTML document carrying Open Graph
// and Twitter Card tags (crawlers) or points the caller at the single-page
// application (humans).
//
// The package owns no I/O of its own. Stores, publishers, and clocks are injected
// through the interfaces in interfaces.go so the HTTP layer and the storage
// backends can be swapped without touching the decision logic.
package preview
