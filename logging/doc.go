// Package logging defines the minimal Logger interface consumed throughout
// dreamfeed plus slog-backed and no-op implementations. Components accept a
// logging.Logger and substitute NoOpLogger when given nil, so library users
// never pay for logging they did not ask for.
package logging
