package admingate

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harborcms/admingate/password"
)

// mockProvider is an in-memory AdminProvider that counts lookups, so tests
// can prove the lockout gate runs before any identity work.
type mockProvider struct {
	mu              sync.Mutex
	records         map[string]AdminRecord // by handle
	getByHandle     int
	getByID         int
	getByIDErr      error
	lastLoginIDs    []string
	passwordUpdates int
}

func newMockProvider(records ...AdminRecord) *mockProvider {
	p := &mockProvider{records: make(map[string]AdminRecord)}
	for _, rec := range records {
		p.records[rec.Handle] = rec
	}
	return p
}

func (p *mockProvider) GetByHandle(_ context.Context, handle string) (AdminRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getByHandle++
	rec, ok := p.records[handle]
	if !ok {
		return AdminRecord{}, ErrIdentityNotFound
	}
	return rec, nil
}

func (p *mockProvider) GetByID(_ context.Context, id string) (AdminRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getByID++
	if p.getByIDErr != nil {
		return AdminRecord{}, p.getByIDErr
	}
	for _, rec := range p.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return AdminRecord{}, ErrIdentityNotFound
}

func (p *mockProvider) UpdatePasswordHash(_ context.Context, id, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordUpdates++
	for handle, rec := range p.records {
		if rec.ID == id {
			rec.PasswordHash = hash
			p.records[handle] = rec
			return nil
		}
	}
	return errors.New("not found")
}

func (p *mockProvider) UpdateLastLogin(_ context.Context, id string, _ time.Time, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastLoginIDs = append(p.lastLoginIDs, id)
	return nil
}

func (p *mockProvider) handleLookups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getByHandle
}

func (p *mockProvider) deactivate(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.records[handle]
	rec.Active = false
	p.records[handle] = rec
}

func (p *mockProvider) forget(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, handle)
}

func (p *mockProvider) failGetByID(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getByIDErr = err
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Token.Secret = bytes.Repeat([]byte("k"), 32)
	cfg.Lockout.Threshold = 3
	// No background churn during tests.
	cfg.Session.SweepInterval = 0
	cfg.CSRF.SweepInterval = 0
	cfg.Lockout.SweepInterval = 0
	return cfg
}

func newTestEngine(t *testing.T, provider AdminProvider) *Engine {
	t.Helper()
	engine, err := New().WithConfig(testEngineConfig()).WithAdminProvider(provider).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func adminRecord(t *testing.T, id, handle, secret string, role Role) AdminRecord {
	t.Helper()
	hasher, err := password.NewHasher(testEngineConfig().Password)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return AdminRecord{
		ID:           id,
		Handle:       handle,
		PasswordHash: hash,
		DisplayName:  handle,
		Role:         role,
		Active:       true,
	}
}

func testCtx() context.Context {
	ctx := WithClientIP(context.Background(), "192.0.2.10")
	return WithUserAgent(ctx, "test-agent/1.0")
}

func TestLoginSuccess(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleSuperAdmin))
	engine := newTestEngine(t, provider)

	result, err := engine.Login(testCtx(), "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.SessionToken == "" || result.BearerToken == "" {
		t.Fatalf("missing tokens: %+v", result)
	}
	if result.Identity.ID != "id-1" || result.Identity.Role != RoleSuperAdmin {
		t.Fatalf("unexpected identity: %+v", result.Identity)
	}

	identity, err := engine.ValidateSession(testCtx(), result.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if identity.Handle != "root" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestLoginWrongSecret(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)

	if _, err := engine.Login(testCtx(), "root", "wrong secret here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownHandleSameError(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)

	_, errUnknown := engine.Login(testCtx(), "nobody", "open sesame 123")
	_, errWrong := engine.Login(testCtx(), "root", "wrong secret here")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("handle enumeration possible: %v vs %v", errUnknown, errWrong)
	}
}

func TestLockoutGateRunsBeforeLookup(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	// Threshold is 3: three failures close the gate.
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "root", "wrong secret here"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if got := provider.handleLookups(); got != 3 {
		t.Fatalf("want 3 lookups, got %d", got)
	}

	// The fourth attempt is rejected before any identity work, even with
	// the correct secret.
	_, err := engine.Login(ctx, "root", "open sesame 123")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if got := provider.handleLookups(); got != 3 {
		t.Fatalf("locked-out attempt reached the provider: %d lookups", got)
	}

	retry, ok := RetryAfter(err)
	if !ok || retry <= 0 {
		t.Fatalf("expected positive retry-after, got %v %v", retry, ok)
	}
}

func TestLoginSuccessClearsLockout(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "root", "wrong secret here")
	}
	if _, err := engine.Login(ctx, "root", "open sesame 123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Counters were cleared: two more failures stay under the threshold.
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "root", "wrong secret here"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after clear: %v", i, err)
		}
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	provider.deactivate("root")
	engine := newTestEngine(t, provider)

	if _, err := engine.Login(testCtx(), "root", "open sesame 123"); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("want ErrAccountDeactivated, got %v", err)
	}
}

func TestDeactivatedAttemptsCountTowardLockout(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	provider.deactivate("root")
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	// Threshold is 3: probing a deactivated account is still guessing.
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "root", "open sesame 123"); !errors.Is(err, ErrAccountDeactivated) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	if _, err := engine.Login(ctx, "root", "open sesame 123"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited after repeated deactivated probes, got %v", err)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := engine.Logout(ctx, result.SessionToken, LogoutManual); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, result.SessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("want ErrSessionInvalid after logout, got %v", err)
	}

	// Logging out a dead session is not an error.
	if err := engine.Logout(ctx, result.SessionToken, LogoutIdle); err != nil {
		t.Fatalf("repeat Logout: %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	var tokens []string
	for i := 0; i < 3; i++ {
		result, err := engine.Login(ctx, "root", "open sesame 123")
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		tokens = append(tokens, result.SessionToken)
	}

	n, err := engine.LogoutAll(ctx, "id-1")
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 destroyed, got %d", n)
	}
	for _, tok := range tokens {
		if _, err := engine.ValidateSession(ctx, tok); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("session survived LogoutAll: %v", err)
		}
	}
}

func TestValidateBearer(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := engine.ValidateBearer(ctx, result.BearerToken)
	if err != nil {
		t.Fatalf("ValidateBearer: %v", err)
	}
	if claims.Identity.ID != "id-1" || claims.Identity.Role != RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Fatalf("bad validity window: %+v", claims)
	}

	if _, err := engine.ValidateBearer(ctx, "garbage"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed, got %v", err)
	}
}

func TestValidateBearerDeactivatedIdentity(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	provider.deactivate("root")

	if _, err := engine.ValidateBearer(ctx, result.BearerToken); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("want ErrAccountDeactivated, got %v", err)
	}
}

func TestValidateBearerUnknownIdentity(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	provider.forget("root")

	// A verified token for a deleted identity is a dead credential.
	if _, err := engine.ValidateBearer(ctx, result.BearerToken); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed, got %v", err)
	}
}

func TestValidateBearerStoreOutageIsNotTokenVerdict(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	outage := errors.New("identity store unreachable")
	provider.failGetByID(outage)

	_, err = engine.ValidateBearer(ctx, result.BearerToken)
	if err == nil {
		t.Fatal("expected an error during the outage")
	}
	if errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenExpired) {
		t.Fatalf("store outage misreported as a token verdict: %v", err)
	}
	if !errors.Is(err, outage) {
		t.Fatalf("outage cause lost: %v", err)
	}

	// The token is fine once the store is back.
	provider.failGetByID(nil)
	if _, err := engine.ValidateBearer(ctx, result.BearerToken); err != nil {
		t.Fatalf("ValidateBearer after recovery: %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	result, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh, err := engine.RefreshToken(ctx, result.BearerToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if _, err := engine.ValidateBearer(ctx, fresh); err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}

	// A deactivated identity cannot refresh.
	provider.deactivate("root")
	if _, err := engine.RefreshToken(ctx, fresh); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("want ErrAccountDeactivated, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	first, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := engine.Login(ctx, "root", "open sesame 123")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}

	if err := engine.ChangePassword(ctx, "id-1", "open sesame 123", "brand new secret 456"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// Every session died with the old password.
	for _, tok := range []string{first.SessionToken, second.SessionToken} {
		if _, err := engine.ValidateSession(ctx, tok); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("session survived password change: %v", err)
		}
	}

	// Old secret no longer works, new one does.
	if _, err := engine.Login(ctx, "root", "open sesame 123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old secret still accepted: %v", err)
	}
	if _, err := engine.Login(ctx, "root", "brand new secret 456"); err != nil {
		t.Fatalf("new secret rejected: %v", err)
	}
}

func TestChangePasswordRejections(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	if err := engine.ChangePassword(ctx, "id-1", "not the secret!", "brand new secret 456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if err := engine.ChangePassword(ctx, "id-1", "open sesame 123", "open sesame 123"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("want ErrPasswordReuse, got %v", err)
	}
	if err := engine.ChangePassword(ctx, "id-1", "open sesame 123", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("want ErrPasswordPolicy, got %v", err)
	}
}

func TestSecurityLogsRecordLoginOutcomes(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	_, _ = engine.Login(ctx, "root", "wrong secret here")
	if _, err := engine.Login(ctx, "root", "open sesame 123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The dispatcher is async; poll briefly for both events to land.
	deadline := time.Now().Add(2 * time.Second)
	for {
		events, _ := engine.SecurityLogs(1, 50)
		kinds := make(map[string]bool, len(events))
		for _, event := range events {
			kinds[event.Kind] = true
		}
		if kinds[EventLoginFailure] && kinds[EventLoginSuccess] {
			for _, event := range events {
				if event.Kind == EventLoginSuccess {
					if event.IdentityID != "id-1" || event.IP != "192.0.2.10" {
						t.Fatalf("success event missing context: %+v", event)
					}
					if len(event.SessionID) > 8 {
						t.Fatalf("audit leaked the session token: %q", event.SessionID)
					}
				}
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("events never landed: %+v", events)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCSRFLifecycle(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	tok, err := engine.IssueCSRF(ctx)
	if err != nil {
		t.Fatalf("IssueCSRF: %v", err)
	}
	if err := engine.CheckCSRF(ctx, tok.Value); err != nil {
		t.Fatalf("CheckCSRF: %v", err)
	}

	otherUA := WithUserAgent(WithClientIP(context.Background(), "192.0.2.10"), "other-agent/2.0")
	if err := engine.CheckCSRF(otherUA, tok.Value); err == nil {
		t.Fatal("token accepted from a different user agent")
	}
}

func TestMetricsCountLogins(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)
	ctx := testCtx()

	_, _ = engine.Login(ctx, "root", "wrong secret here")
	if _, err := engine.Login(ctx, "root", "open sesame 123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("want 1 success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("want 1 failure, got %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("want 1 session, got %d", snap.Counters[MetricSessionCreated])
	}
}

func TestCloseDrainsLastLoginWrites(t *testing.T) {
	provider := newMockProvider(adminRecord(t, "id-1", "root", "open sesame 123", RoleAdmin))
	engine := newTestEngine(t, provider)

	if _, err := engine.Login(testCtx(), "root", "open sesame 123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	engine.Close()

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.lastLoginIDs) != 1 || provider.lastLoginIDs[0] != "id-1" {
		t.Fatalf("last-login write not drained: %+v", provider.lastLoginIDs)
	}
}
