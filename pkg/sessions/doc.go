/*
Package sessions provides SessionStore implementations for the SDK's
principal lifecycle.

Three backings are available:

  - Memory: a process-local store for tests and single-process apps.
  - TokenStore: a stateless store that signs the session data into a compact
    token (via Codec) suitable for a cookie value; the caller supplies the
    read/write plumbing that binds it to its cookie or header.
  - sqlite.Store: a durable store keeping one row per session, keyed by the
    fingerprint of an unguessable session identifier.

All stores treat Clear as idempotent and report a missing session as
(nil, nil) from Load.
*/
package sessions
