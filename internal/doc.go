// Package internal contains helpers that are private to ffauth, currently the
// random session id generator shared by every store.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: environment loading for the server binaries
//   - flows: flow orchestrators for every Engine operation
//   - logging: zap logger construction
//
// # What this package must NOT do
//
//   - Export types that appear in the public ffauth API.
//   - Be imported by any package outside the ffauth module.
package internal
