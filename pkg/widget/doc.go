// Package widget holds the interactive state of the country map.
//
// All state lives in one [State] value. Every user or loader action is an
// [Event], and [Apply] computes the next state without side effects, so the
// same transitions drive the HTTP server, the terminal explorer and the
// renderer.
//
// The state has four independent parts:
//
//   - Load: whether the metrics document is loaded, loading or failed.
//     Until it is loaded every country gets the fallback color.
//   - Hover: idle, or hovering a country with the cursor position captured
//     when the pointer entered. Pointer moves inside a country do not move
//     the tooltip.
//   - Search: the current query. Matching countries are highlighted and
//     listed as results; selecting one recenters the view on its centroid.
//   - View: the pan/zoom position, replaced verbatim on move end and
//     restored to the initial view on reset.
//
// Derived values such as [Tooltip], [Results] and [FeatureStyle] are pure
// functions of the state.
package widget
