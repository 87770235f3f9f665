package accountd

import (
	"context"
	"errors"
	"testing"
)

func TestRegister(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	result, err := env.engine.Register(ctx, RegisterInput{
		Email:    "rider@example.com",
		Phone:    "13800138000",
		Password: "Secret123!",
		Nickname: "rider",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	acct := result.Account
	if acct.ID == "" {
		t.Error("empty account ID")
	}
	if acct.PasswordHash == "Secret123!" || acct.PasswordHash == "" {
		t.Error("password not hashed")
	}
	if !acct.IsActive {
		t.Error("new account inactive")
	}
	if acct.CreatedAt.IsZero() || acct.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	// Registration signs the account in: the returned token parses as the
	// new account's credential.
	if result.Token == "" {
		t.Fatal("no token issued")
	}
	if err := env.engine.Logout(ctx, result.Token); err != nil {
		t.Errorf("issued token rejected: %v", err)
	}
}

func TestRegisterWithoutPhone(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	result, err := env.engine.Register(ctx, RegisterInput{
		Email:    "rider@example.com",
		Password: "Secret123!",
	})
	if err != nil {
		t.Fatalf("Register without phone: %v", err)
	}
	if result.Account.Phone != "" {
		t.Errorf("phone = %q, want empty", result.Account.Phone)
	}

	// Absent phones never collide with each other.
	if _, err := env.engine.Register(ctx, RegisterInput{
		Email:    "other@example.com",
		Password: "Secret123!",
	}); err != nil {
		t.Fatalf("second phone-less register: %v", err)
	}

	if _, err := env.engine.Login(ctx, LoginInput{Email: "rider@example.com", Password: "Secret123!"}); err != nil {
		t.Fatalf("login without phone on record: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	registerTestAccount(t, env)

	_, err := env.engine.Register(ctx, RegisterInput{
		Email: "rider@example.com", Phone: "13900139000", Password: "Secret123!",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email = %v, want ErrEmailExists", err)
	}

	_, err = env.engine.Register(ctx, RegisterInput{
		Email: "other@example.com", Phone: "13800138000", Password: "Secret123!",
	})
	if !errors.Is(err, ErrPhoneExists) {
		t.Fatalf("duplicate phone = %v, want ErrPhoneExists", err)
	}

	// Colliding on both reports the email conflict.
	_, err = env.engine.Register(ctx, RegisterInput{
		Email: "rider@example.com", Phone: "13800138000", Password: "Secret123!",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("double conflict = %v, want ErrEmailExists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Phone: "13800138000", Password: "Secret123!"}, ErrInvalidEmail},
		{"empty email", RegisterInput{Phone: "13800138000", Password: "Secret123!"}, ErrInvalidEmail},
		{"bad phone", RegisterInput{Email: "rider@example.com", Phone: "12345", Password: "Secret123!"}, ErrInvalidPhone},
		{"short password", RegisterInput{Email: "rider@example.com", Phone: "13800138000", Password: "S1!"}, ErrPasswordPolicy},
		{"no digit", RegisterInput{Email: "rider@example.com", Phone: "13800138000", Password: "Secretbig!"}, ErrPasswordPolicy},
		{"no special", RegisterInput{Email: "rider@example.com", Phone: "13800138000", Password: "Secret12345"}, ErrPasswordPolicy},
		{"no letter", RegisterInput{Email: "rider@example.com", Phone: "13800138000", Password: "12345678!!"}, ErrPasswordPolicy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Register(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Errorf("Register = %v, want %v", err, tc.want)
			}
		})
	}

	// None of the failed attempts may have created an account.
	if _, err := env.engine.Login(ctx, LoginInput{Email: "rider@example.com", Password: "Secret123!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("validation failure left an account behind: %v", err)
	}
}
