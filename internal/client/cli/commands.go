package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/tagzilla/internal/auth"
	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/filex"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
	"github.com/dmitrijs2005/tagzilla/internal/store"
)

func (a *App) secret(prompt string) (string, error) {
	pw, err := getPassword(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Register usage: register [email] [name...]
func (a *App) Register(ctx context.Context, args []string) error {
	email, err := a.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	name := strings.Join(args[min(1, len(args)):], " ")
	if name == "" {
		if name, err = getSimpleText(a.reader, "Name", a.out); err != nil {
			return err
		}
	}
	phone, err := getSimpleText(a.reader, "Phone (optional)", a.out)
	if err != nil {
		return err
	}
	secret, err := a.secret("Password")
	if err != nil {
		return err
	}
	return a.show(a.svc.Register(ctx, auth.RegisterInput{Name: name, Email: email, Secret: secret, Phone: phone}), false)
}

// Login usage: login [email]
func (a *App) Login(ctx context.Context, args []string) error {
	email, err := a.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	secret, err := a.secret("Password")
	if err != nil {
		return err
	}

	r := a.svc.Login(ctx, email, secret)
	if err := a.show(r, false); err != nil {
		return err
	}
	p := r.Payload.(*auth.LoginPayload)
	a.token, a.account = p.Token, p.Account
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	r := a.svc.Logout(ctx, a.token)
	a.token, a.account = "", nil
	return a.show(r, false)
}

// WhoAmI re-validates the session and prints the account.
func (a *App) WhoAmI(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	r := a.svc.Authenticate(ctx, a.token)
	if !r.Success {
		a.token, a.account = "", nil
		return a.show(r, true)
	}
	a.account = r.Payload.(*models.AccountView)
	return a.show(r, true)
}

// Profile usage: profile name=... email=... phone=...
func (a *App) Profile(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	kv, err := ParseKeyValues(args)
	if err != nil {
		return err
	}

	var in auth.ProfileUpdate
	for k, v := range kv {
		v := v
		switch k {
		case "name":
			in.Name = &v
		case "email":
			in.Email = &v
		case "phone":
			in.Phone = &v
		default:
			return fmt.Errorf("unknown profile field %q", k)
		}
	}

	r := a.svc.UpdateProfile(ctx, a.account.ID, in)
	if r.Success {
		a.account = r.Payload.(*models.AccountView)
	}
	return a.show(r, true)
}

// Settings usage: settings theme=dark notifications=false profile=private activity=public
func (a *App) Settings(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	kv, err := ParseKeyValues(args)
	if err != nil {
		return err
	}

	var in auth.SettingsUpdate
	for k, v := range kv {
		v := v
		switch k {
		case "theme":
			in.Theme = &v
		case "notifications":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("notifications: %w", err)
			}
			in.Notifications = &b
		case "profile":
			in.ProfileVisibility = &v
		case "activity":
			in.ActivityVisibility = &v
		default:
			return fmt.Errorf("unknown setting %q", k)
		}
	}
	return a.show(a.svc.UpdateSettings(ctx, a.account.ID, in), true)
}

// Passwd changes the password and keeps the current session.
func (a *App) Passwd(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	current, err := a.secret("Current password")
	if err != nil {
		return err
	}
	next, err := a.secret("New password")
	if err != nil {
		return err
	}
	return a.show(a.svc.ChangeSecret(ctx, a.account.ID, current, next, a.token), false)
}

func (a *App) remember(r auth.Result) {
	if st, ok := r.Payload.(*otp.Status); ok && r.Success {
		a.otpPhone, a.otpID = st.Phone, st.VerificationID
	}
}

// SendOTP usage: otp [phone]
func (a *App) SendOTP(ctx context.Context, args []string) error {
	phone, err := a.arg(args, 0, "Phone")
	if err != nil {
		return err
	}
	r := a.svc.SendOTP(ctx, phone)
	a.remember(r)
	return a.show(r, true)
}

// Verify usage: verify <code> [phone] [verification id]
//
// Phone and id default to the last challenge. When logged in, a successful
// check also marks the phone as verified on the account.
func (a *App) Verify(ctx context.Context, args []string) error {
	code, err := a.arg(args, 0, "Code")
	if err != nil {
		return err
	}
	phone, id := a.otpPhone, a.otpID
	if len(args) > 1 {
		phone = args[1]
	}
	if len(args) > 2 {
		id = args[2]
	}
	if phone == "" || id == "" {
		return fmt.Errorf("no pending verification, run 'otp' first")
	}

	var r auth.Result
	if a.isLoggedIn() {
		r = a.svc.VerifyPhone(ctx, a.account.ID, phone, code, id)
		if r.Success {
			a.account = r.Payload.(*models.AccountView)
		}
	} else {
		r = a.svc.VerifyOTP(ctx, phone, code, id)
	}
	if r.Success {
		a.otpPhone, a.otpID = "", ""
	}
	return a.show(r, false)
}

// Resend usage: resend [phone] [verification id]
func (a *App) Resend(ctx context.Context, args []string) error {
	phone, id := a.otpPhone, a.otpID
	if len(args) > 0 {
		phone = args[0]
	}
	if len(args) > 1 {
		id = args[1]
	}
	if phone == "" {
		return fmt.Errorf("no pending verification, run 'otp' first")
	}
	r := a.svc.ResendOTP(ctx, phone, id)
	a.remember(r)
	return a.show(r, true)
}

// Activity usage:
//
//	activity [type=...] [status=...] [limit=N]
//	activity add <type> [status]
func (a *App) Activity(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "add" {
		return a.addActivity(ctx, args[1:])
	}

	kv, err := ParseKeyValues(args)
	if err != nil {
		return err
	}
	var f auth.ActivityFilter
	for k, v := range kv {
		switch k {
		case "type":
			f.Type = models.ActivityType(v)
		case "status":
			f.Status = models.ActivityStatus(v)
		case "limit":
			if f.Limit, err = strconv.Atoi(v); err != nil {
				return fmt.Errorf("limit: %w", err)
			}
		default:
			return fmt.Errorf("unknown filter %q", k)
		}
	}
	return a.show(a.svc.Activities(ctx, a.account.ID, f), true)
}

func (a *App) addActivity(ctx context.Context, args []string) error {
	typ, err := a.arg(args, 0, "Type")
	if err != nil {
		return err
	}
	in := auth.ActivityInput{Type: models.ActivityType(typ)}
	if len(args) > 1 {
		in.Status = models.ActivityStatus(args[1])
	}

	if in.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if in.Description, err = GetMultiline(a.reader, "Description", a.out); err != nil {
		return err
	}
	lines, err := GetMetadata(a.reader, a.out)
	if err != nil {
		return err
	}
	kv, err := ParseKeyValues(lines)
	if err != nil {
		return err
	}
	if len(kv) > 0 {
		in.Metadata = make(map[string]any, len(kv))
		for k, v := range kv {
			in.Metadata[k] = metaValue(v)
		}
	}

	return a.show(a.svc.RecordActivity(ctx, a.account.ID, in), true)
}

// metaValue keeps numbers numeric so usage stats can read them.
func metaValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

func (a *App) Stats(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	return a.show(a.svc.Analytics(ctx, a.account.ID), true)
}

// Export usage: export <file>
func (a *App) Export(ctx context.Context, args []string) error {
	path, err := a.arg(args, 0, "File")
	if err != nil {
		return err
	}
	r := a.svc.Export(ctx)
	if !r.Success {
		return a.show(r, false)
	}
	data, err := json.MarshalIndent(r.Payload, "", "  ")
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Written to %s\n", r.Message, path)
	return nil
}

// Import usage: import <file>
func (a *App) Import(ctx context.Context, args []string) error {
	path, err := a.arg(args, 0, "File")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return a.show(a.svc.Import(ctx, &snap), true)
}

func (a *App) Status(ctx context.Context) error {
	return a.show(a.svc.Status(), true)
}
