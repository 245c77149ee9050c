// Package changelog turns a commit range into release notes.
//
// The pipeline is:
//   - drop merge commits (optional)
//   - parse conventional commit headers and trailers (preset only)
//   - extract issue references
//   - apply labelers
//   - collect contributors
//   - filter by include/exclude labels
//   - assign categories, first match wins
//   - render through user templates
//   - apply replacers to the final text
//
// The conventional-commits preset is embedded at build time and merged
// ahead of user supplied categories and labelers.
package changelog
