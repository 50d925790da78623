package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLoginWithGoogleProvisionsOnce(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.verifier.identities["tok"] = FederatedIdentity{Subject: "1234567890", Email: "Gina@Example.com"}

	first, err := h.engine.LoginWithGoogle(ctx, "tok")
	if err != nil {
		t.Fatalf("LoginWithGoogle failed: %v", err)
	}
	id := h.accountID(t, first)
	acct := h.repo.get(t, id)
	if acct.Email != "gina@example.com" || acct.PasswordHash != "" {
		t.Fatalf("unexpected provisioned account %+v", acct)
	}

	second, err := h.engine.LoginWithGoogle(ctx, "tok")
	if err != nil {
		t.Fatalf("second LoginWithGoogle failed: %v", err)
	}
	if got := h.accountID(t, second); got != id {
		t.Fatalf("expected account %s, got %s", id, got)
	}

	h.flushEvents()
	if got := len(h.events.ofType(EventAccountRegistered)); got != 1 {
		t.Fatalf("expected one account.registered event, got %d", got)
	}
	if got := len(h.events.ofType(EventLoginSuccess)); got != 2 {
		t.Fatalf("expected two login.success events, got %d", got)
	}
}

func TestLoginWithGoogleConcurrentFirstLogin(t *testing.T) {
	h := newTestHarness(t)
	h.verifier.identities["tok"] = FederatedIdentity{Subject: "sub-race", Email: "race@example.com"}

	const n = 8
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := h.engine.LoginWithGoogle(context.Background(), "tok")
			if err != nil {
				t.Errorf("LoginWithGoogle failed: %v", err)
				return
			}
			res, err := h.engine.ValidateAccess(context.Background(), pair.AccessToken)
			if err != nil {
				t.Errorf("ValidateAccess failed: %v", err)
				return
			}
			ids <- res.AccountID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("concurrent first logins resolved to different accounts: %s and %s", first, id)
		}
	}
	if h.repo.count() != 1 {
		t.Fatalf("expected one account, got %d", h.repo.count())
	}
}

func TestLoginWithGoogleRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.verifier.identities["no-email"] = FederatedIdentity{Subject: "s"}
	h.verifier.identities["no-sub"] = FederatedIdentity{Email: "x@example.com"}

	for _, tok := range []string{"", "forged", "no-email", "no-sub"} {
		_, err := h.engine.LoginWithGoogle(ctx, tok)
		if !errors.Is(err, ErrIdentityRejected) || KindOf(err) != KindUnauthorized {
			t.Fatalf("%q: expected unauthorized ErrIdentityRejected, got %v", tok, err)
		}
	}
	if h.repo.count() != 0 {
		t.Fatal("rejected tokens must not provision accounts")
	}
}

func TestLoginWithGoogleWithoutVerifier(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).WithCredentialRepository(newFakeRepo()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.LoginWithGoogle(context.Background(), "tok"); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestLoginWithGoogleDeletedAccount(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.verifier.identities["tok"] = FederatedIdentity{Subject: "gone", Email: "gone@example.com"}

	pair, err := h.engine.LoginWithGoogle(ctx, "tok")
	if err != nil {
		t.Fatalf("LoginWithGoogle failed: %v", err)
	}
	if err := h.engine.SetAccountStatus(ctx, h.accountID(t, pair), AccountDeleted); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}
	if _, err := h.engine.LoginWithGoogle(ctx, "tok"); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("expected ErrAccountDeleted, got %v", err)
	}
}
