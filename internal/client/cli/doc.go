// Package cli provides the interactive Tagzilla command-line client.
//
// The client runs the core in-process: it opens the local store, then drives
// the auth service from a small REPL. Typical flow: register, log in, verify
// a phone number with a one-time code, adjust profile and settings.
//
// Commands:
//   - register, login, logout, whoami
//   - profile, settings, passwd
//   - otp, verify, resend
//   - activity, stats
//   - export, import, status
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
