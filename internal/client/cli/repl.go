package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context, args []string) error
	Settings(ctx context.Context, args []string) error
	Passwd(ctx context.Context) error
	SendOTP(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context, args []string) error
	Activity(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the Tagzilla CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and passes the remaining tokens to it. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the user
// types "exit" or "quit".
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tz> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, profile, settings, passwd, otp, verify, resend, activity, stats, export, import, status, logout, exit")
			} else {
				printlnFn("Available commands: register, login, otp, verify, resend, export, import, status, exit")
			}

		case "register":
			err = a.Register(ctx, args)
		case "login":
			err = a.Login(ctx, args)
		case "logout":
			err = a.Logout(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "profile":
			err = a.Profile(ctx, args)
		case "settings":
			err = a.Settings(ctx, args)
		case "passwd":
			err = a.Passwd(ctx)
		case "otp":
			err = a.SendOTP(ctx, args)
		case "verify":
			err = a.Verify(ctx, args)
		case "resend":
			err = a.Resend(ctx, args)
		case "activity", "a":
			err = a.Activity(ctx, args)
		case "stats":
			err = a.Stats(ctx)
		case "export":
			err = a.Export(ctx, args)
		case "import":
			err = a.Import(ctx, args)
		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
