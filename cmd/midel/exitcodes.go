package main

// Exit codes shared by every command.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no site, bad config or environment)
	ExitDataError   = 3 // Data error (malformed catalog or CSV, validation findings)
	ExitAuthError   = 4 // Login rejected or submission without an allowed session
)
