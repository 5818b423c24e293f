package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/tagzilla/internal/auth"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/store"
)

var errNotLoggedIn = errors.New("please log in first")

// Prompt seams, replaced in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Service is the part of the auth service the CLI drives.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) auth.Result
	Login(ctx context.Context, email, secret string) auth.Result
	Logout(ctx context.Context, token string) auth.Result
	Authenticate(ctx context.Context, token string) auth.Result
	UpdateProfile(ctx context.Context, accountID string, in auth.ProfileUpdate) auth.Result
	UpdateSettings(ctx context.Context, accountID string, in auth.SettingsUpdate) auth.Result
	ChangeSecret(ctx context.Context, accountID, current, next, keepToken string) auth.Result
	SendOTP(ctx context.Context, phone string) auth.Result
	VerifyOTP(ctx context.Context, phone, code, verificationID string) auth.Result
	VerifyPhone(ctx context.Context, accountID, phone, code, verificationID string) auth.Result
	ResendOTP(ctx context.Context, phone, verificationID string) auth.Result
	RecordActivity(ctx context.Context, accountID string, in auth.ActivityInput) auth.Result
	Activities(ctx context.Context, accountID string, f auth.ActivityFilter) auth.Result
	Analytics(ctx context.Context, accountID string) auth.Result
	Export(ctx context.Context) auth.Result
	Import(ctx context.Context, snap *store.Snapshot) auth.Result
	Status() auth.Result
}

type App struct {
	svc    Service
	reader *bufio.Reader
	out    io.Writer

	token   string
	account *models.AccountView

	// last issued challenge, used as the default for verify and resend
	otpPhone string
	otpID    string
}

func NewApp(svc Service) *App {
	return &App{svc: svc, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.account == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.account.Email)
}

// Root prints a greeting and runs the REPL on stdin until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to Tagzilla CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// show prints the result message and, when verbose, the payload as JSON.
// A failed result becomes an error carrying its message.
func (a *App) show(r auth.Result, verbose bool) error {
	if !r.Success {
		return fmt.Errorf("%s (%s)", r.Message, r.Code)
	}
	fmt.Fprintln(a.out, r.Message)
	if verbose && r.Payload != nil {
		b, err := json.MarshalIndent(r.Payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(b))
	}
	return nil
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

// arg returns args[i] or asks for it.
func (a *App) arg(args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}
