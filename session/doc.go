// Package session houses the RepositorySessionManager, which keeps in-memory
// agents consistent with a core.SessionRepository, and the in-memory
// repository implementation. The contracts themselves (and the session
// entities) live in the core package to centralize domain definitions.
//
// Durable backends live in sub-packages (file, sqlite, postgres) without
// changing any calling code – only the wiring layer needs to decide which
// implementation to instantiate. The sessiontest sub-package holds the
// conformance suite every backend runs.
package session
