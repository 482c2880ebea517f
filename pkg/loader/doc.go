// Package loader fetches the metrics and geometry documents.
//
// A source is either an http(s) URL or a local file path. Each call fetches
// exactly once: there is no retry, and a timeout comes only from the
// caller's context. Remote documents that decode successfully are stored in
// a [cache.Cache] so repeated renders do not refetch them.
//
// [Loader.Dataset] reports its progress as widget events (LoadStarted, then
// LoadSucceeded or LoadFailed) through a callback, so a failure is a state
// the widget can display rather than something silently swallowed.
package loader
