// Package storetest holds the behaviour every authgate.CredentialRepository
// must share. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/authgate/authgate"
	"github.com/google/uuid"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) authgate.CredentialRepository

// Run executes the repository contract against newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newRepo(t)) })
	t.Run("DuplicateBinding", func(t *testing.T) { testDuplicateBinding(t, newRepo(t)) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newRepo(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newRepo(t)) })
	t.Run("TOTPLifecycle", func(t *testing.T) { testTOTPLifecycle(t, newRepo(t)) })
	t.Run("PasswordAndStatus", func(t *testing.T) { testPasswordAndStatus(t, newRepo(t)) })
}

func create(t *testing.T, repo authgate.CredentialRepository, provider authgate.Provider, key string) *authgate.Account {
	t.Helper()

	acct := authgate.Account{ID: uuid.NewString(), Status: authgate.AccountActive}
	switch provider {
	case authgate.ProviderEmail:
		acct.Email = key
		acct.PasswordHash = "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA"
	case authgate.ProviderPhone:
		acct.Phone = key
	}
	out, err := repo.CreateWithBinding(context.Background(), acct, authgate.IdentityBinding{
		Provider:    provider,
		ProviderKey: key,
		AccountID:   acct.ID,
	})
	if err != nil {
		t.Fatalf("CreateWithBinding(%s, %s) failed: %v", provider, key, err)
	}
	return out
}

func testCreateAndFind(t *testing.T, repo authgate.CredentialRepository) {
	ctx := context.Background()
	created := create(t, repo, authgate.ProviderEmail, "a@example.com")
	if created.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}

	byBinding, err := repo.FindByBinding(ctx, authgate.ProviderEmail, "a@example.com")
	if err != nil {
		t.Fatalf("FindByBinding failed: %v", err)
	}
	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	for _, got := range []*authgate.Account{byBinding, byID} {
		if got.ID != created.ID || got.Email != "a@example.com" || got.PasswordHash != created.PasswordHash {
			t.Fatalf("unexpected account: %+v", got)
		}
		if got.Status != authgate.AccountActive || got.MFAEnabled || got.MFASecret != "" {
			t.Fatalf("unexpected initial state: %+v", got)
		}
	}

	if _, err := repo.FindByBinding(ctx, authgate.ProviderPhone, "a@example.com"); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("binding lookup must be scoped by provider, got %v", err)
	}
}

func testDuplicateBinding(t *testing.T, repo authgate.CredentialRepository) {
	ctx := context.Background()
	first := create(t, repo, authgate.ProviderPhone, "+14155550123")

	second := authgate.Account{ID: uuid.NewString(), Phone: "+14155550123", Status: authgate.AccountActive}
	_, err := repo.CreateWithBinding(ctx, second, authgate.IdentityBinding{
		Provider:    authgate.ProviderPhone,
		ProviderKey: "+14155550123",
		AccountID:   second.ID,
	})
	if !errors.Is(err, authgate.ErrBindingExists) {
		t.Fatalf("expected ErrBindingExists, got %v", err)
	}

	// The losing account must not exist without its binding.
	if _, err := repo.FindByID(ctx, second.ID); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("orphan account visible after failed create: %v", err)
	}
	got, err := repo.FindByBinding(ctx, authgate.ProviderPhone, "+14155550123")
	if err != nil || got.ID != first.ID {
		t.Fatalf("binding moved: %+v, %v", got, err)
	}
}

func testConcurrentCreate(t *testing.T, repo authgate.CredentialRepository) {
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		unknown []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acct := authgate.Account{ID: uuid.NewString(), Status: authgate.AccountActive}
			_, err := repo.CreateWithBinding(context.Background(), acct, authgate.IdentityBinding{
				Provider:    authgate.ProviderGoogle,
				ProviderKey: "google-sub-1",
				AccountID:   acct.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, authgate.ErrBindingExists):
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	if len(unknown) > 0 {
		t.Fatalf("unexpected errors: %v", unknown)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one create to win, got %d", wins)
	}
}

func testNotFound(t *testing.T, repo authgate.CredentialRepository) {
	ctx := context.Background()
	missing := uuid.NewString()

	if _, err := repo.FindByID(ctx, missing); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("FindByID: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := repo.FindByBinding(ctx, authgate.ProviderEmail, "nobody@example.com"); !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("FindByBinding: expected ErrAccountNotFound, got %v", err)
	}

	updates := map[string]func() error{
		"UpdatePasswordHash": func() error { return repo.UpdatePasswordHash(ctx, missing, "h") },
		"StageTOTPSecret":    func() error { return repo.StageTOTPSecret(ctx, missing, "JBSWY3DPEHPK3PXP") },
		"EnableTOTP":         func() error { return repo.EnableTOTP(ctx, missing) },
		"DisableTOTP":        func() error { return repo.DisableTOTP(ctx, missing) },
		"UpdateStatus":       func() error { return repo.UpdateStatus(ctx, missing, authgate.AccountSuspended) },
	}
	for name, fn := range updates {
		if err := fn(); !errors.Is(err, authgate.ErrAccountNotFound) {
			t.Fatalf("%s: expected ErrAccountNotFound, got %v", name, err)
		}
	}
}

func testTOTPLifecycle(t *testing.T, repo authgate.CredentialRepository) {
	ctx := context.Background()
	acct := create(t, repo, authgate.ProviderEmail, "mfa@example.com")

	if err := repo.EnableTOTP(ctx, acct.ID); !errors.Is(err, authgate.ErrTOTPNotStaged) {
		t.Fatalf("EnableTOTP without secret: expected ErrTOTPNotStaged, got %v", err)
	}

	if err := repo.StageTOTPSecret(ctx, acct.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("StageTOTPSecret failed: %v", err)
	}
	got, _ := repo.FindByID(ctx, acct.ID)
	if got.MFAEnabled || got.MFASecret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("staged state wrong: %+v", got)
	}

	if err := repo.EnableTOTP(ctx, acct.ID); err != nil {
		t.Fatalf("EnableTOTP failed: %v", err)
	}
	got, _ = repo.FindByID(ctx, acct.ID)
	if !got.MFAEnabled {
		t.Fatal("MFAEnabled not set")
	}

	if err := repo.DisableTOTP(ctx, acct.ID); err != nil {
		t.Fatalf("DisableTOTP failed: %v", err)
	}
	got, _ = repo.FindByID(ctx, acct.ID)
	if got.MFAEnabled || got.MFASecret != "" {
		t.Fatalf("disable must clear flag and secret: %+v", got)
	}
}

func testPasswordAndStatus(t *testing.T, repo authgate.CredentialRepository) {
	ctx := context.Background()
	acct := create(t, repo, authgate.ProviderEmail, "status@example.com")

	if err := repo.UpdatePasswordHash(ctx, acct.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, acct.ID, authgate.AccountSuspended); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := repo.FindByBinding(ctx, authgate.ProviderEmail, "status@example.com")
	if err != nil {
		t.Fatalf("FindByBinding failed: %v", err)
	}
	if got.PasswordHash != "new-hash" || got.Status != authgate.AccountSuspended {
		t.Fatalf("updates not visible: %+v", got)
	}
}
