package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/pkg/checksum"
	"github.com/yndnr/securestore-go/pkg/crypto/adaptive"
)

// mockBackend is an in-memory Backend that cannot list its keys.
type mockBackend struct {
	mu           sync.Mutex
	data         map[string][]byte
	opts         map[string]PutOptions
	puts         int
	putErr       error
	failPutAfter int
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		data: make(map[string][]byte),
		opts: make(map[string]PutOptions),
	}
}

func (m *mockBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return bytes.Clone(v), nil
}

func (m *mockBackend) Put(_ context.Context, key string, data []byte, opts PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	if m.failPutAfter > 0 && m.puts > m.failPutAfter {
		return errors.New("disk full")
	}
	m.data[key] = bytes.Clone(data)
	m.opts[key] = opts
	return nil
}

func (m *mockBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.opts, key)
	return nil
}

func (m *mockBackend) raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockBackend) setRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}

func (m *mockBackend) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// mutate rewrites the stored envelope under key.
func (m *mockBackend) mutate(t *testing.T, key string, fn func(env *domain.Envelope)) {
	t.Helper()
	data, ok := m.raw(key)
	if !ok {
		t.Fatalf("no entry under %s", key)
	}
	env, err := domain.ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	fn(env)
	out, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	m.setRaw(key, out)
}

// listingBackend adds key enumeration.
type listingBackend struct {
	*mockBackend
}

func (l listingBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var keys []string
	for k := range l.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type engineFixture struct {
	svc     *StorageService
	backend *mockBackend
	clock   *fakeClock
	obs     *countingObserver
	derived *atomic.Int32
}

func newEngine(t testing.TB, backend Backend, opts StorageOptions) *engineFixture {
	t.Helper()
	derived := &atomic.Int32{}
	obs := &countingObserver{kdf: derived}

	cipher, err := NewCipherService(CipherOptions{Algorithm: adaptive.AES256GCM, KDF: testKDF(), TagLengthBits: 128}, NewWorkPool(4), obs)
	if err != nil {
		t.Fatalf("NewCipherService: %v", err)
	}
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	passwords, err := NewDevicePassword([]byte("0123456789abcdef0123456789abcdef"), ns)
	if err != nil {
		t.Fatalf("NewDevicePassword: %v", err)
	}

	clock := newFakeClock()
	svc, err := NewStorageService(backend, cipher, passwords, opts, WithObserver(obs), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewStorageService: %v", err)
	}

	f := &engineFixture{svc: svc, clock: clock, obs: obs, derived: derived}
	switch b := backend.(type) {
	case *mockBackend:
		f.backend = b
	case listingBackend:
		f.backend = b.mockBackend
	}
	return f
}

func TestNewStorageService_Config(t *testing.T) {
	cipher, _ := NewCipherService(CipherOptions{Algorithm: adaptive.AES256GCM, KDF: testKDF(), TagLengthBits: 128}, nil, nil)
	passwords, _ := NewDevicePassword([]byte("0123456789abcdef"), DefaultNamespace)

	tests := []struct {
		name string
		opts StorageOptions
	}{
		{"underscore in namespace", StorageOptions{Namespace: "my_app"}},
		{"space in namespace", StorageOptions{Namespace: "my app"}},
		{"namespace too long", StorageOptions{Namespace: strings.Repeat("a", 65)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStorageService(newMockBackend(), cipher, passwords, tt.opts)
			if !errors.Is(err, domain.ErrConfig) {
				t.Errorf("err = %v, want ErrConfig", err)
			}
		})
	}

	if _, err := NewStorageService(nil, cipher, passwords, StorageOptions{}); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("nil backend err = %v", err)
	}
}

func TestStorageService_ConfidentialSettings(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	value := map[string]string{"theme": "dark"}
	if err := f.svc.Store(ctx, "user_settings_42", value, domain.Confidential, StoreOptions{}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	physical := "securestore_confidential_user_settings_42"
	raw, ok := f.backend.raw(physical)
	if !ok {
		t.Fatalf("nothing stored under %s", physical)
	}
	if bytes.Contains(raw, []byte("dark")) {
		t.Error("plaintext visible in persisted envelope")
	}
	env, err := domain.ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if !env.Payload.IsEncrypted() {
		t.Error("confidential payload must be encrypted")
	}
	if env.Checksum != checksum.Sum([]byte(`{"theme":"dark"}`)) {
		t.Error("envelope checksum must cover the serialized value")
	}
	putOpts := f.backend.opts[physical]
	if !putOpts.RequireAuthentication || putOpts.AccessLevel != domain.AccessUser || putOpts.Namespace != DefaultNamespace {
		t.Errorf("put options = %+v", putOpts)
	}

	var got map[string]string
	found, err := f.svc.Retrieve(ctx, "user_settings_42", domain.Confidential, &got)
	if err != nil || !found {
		t.Fatalf("Retrieve = %v, %v", found, err)
	}
	if got["theme"] != "dark" {
		t.Errorf("got %v", got)
	}

	trail := f.svc.AuditTrail()
	if len(trail) != 2 {
		t.Fatalf("audit len = %d, want 2", len(trail))
	}
	if trail[0].Operation != domain.OpStore || !trail[0].Success {
		t.Errorf("first record = %+v", trail[0])
	}
	if trail[1].Operation != domain.OpRetrieve || !trail[1].Success || trail[1].LogicalKey != "user_settings_42" {
		t.Errorf("second record = %+v", trail[1])
	}
}

func TestStorageService_RoundTripAllClassifications(t *testing.T) {
	type profile struct {
		Name  string   `json:"name"`
		Age   int      `json:"age"`
		Roles []string `json:"roles"`
	}
	want := profile{Name: "Ada", Age: 36, Roles: []string{"admin", "ops"}}

	for _, defaultEnc := range []bool{false, true} {
		f := newEngine(t, newMockBackend(), StorageOptions{DefaultEncryption: defaultEnc})
		ctx := context.Background()

		for _, c := range domain.Classifications {
			if err := f.svc.Store(ctx, "profile", want, c, StoreOptions{}); err != nil {
				t.Fatalf("%s Store: %v", c, err)
			}
			var got profile
			found, err := f.svc.Retrieve(ctx, "profile", c, &got)
			if err != nil || !found {
				t.Fatalf("%s Retrieve = %v, %v", c, found, err)
			}
			if got.Name != want.Name || got.Age != want.Age || len(got.Roles) != 2 {
				t.Errorf("%s got %+v", c, got)
			}

			raw, _ := f.backend.raw(PhysicalKey(DefaultNamespace, c, "profile"))
			env, _ := domain.ParseEnvelope(raw)
			wantEnc := f.svc.Policy(c).RequireEncryption
			if env.Payload.IsEncrypted() != wantEnc {
				t.Errorf("%s (defaultEncryption=%v) encrypted = %v, want %v", c, defaultEnc, env.Payload.IsEncrypted(), wantEnc)
			}
		}
	}
}

func TestStorageService_PublicSkipsKeyDerivation(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if err := f.svc.Store(ctx, "banner", "hello", domain.Public, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	var s string
	if _, err := f.svc.Retrieve(ctx, "banner", domain.Public, &s); err != nil {
		t.Fatal(err)
	}
	if n := f.derived.Load(); n != 0 {
		t.Errorf("public entries derived %d keys", n)
	}
	if s != "hello" {
		t.Errorf("got %q", s)
	}
}

func TestStorageService_TamperedSecretFailsClosed(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if err := f.svc.Store(ctx, "vault", map[string]string{"pin": "987654"}, domain.Secret, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Secret, "vault"), func(env *domain.Envelope) {
		env.Payload.Encrypted.Ciphertext[0] ^= 0x01
	})

	got := map[string]string{"untouched": "yes"}
	found, err := f.svc.Retrieve(ctx, "vault", domain.Secret, &got)
	if found || !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("Retrieve = %v, %v; want integrity failure", found, err)
	}
	if _, leaked := got["pin"]; leaked || got["untouched"] != "yes" {
		t.Errorf("target modified: %v", got)
	}
	if f.obs.integrity.Load() != 1 {
		t.Errorf("integrity events = %d, want 1", f.obs.integrity.Load())
	}

	var se *domain.StorageError
	if !errors.As(err, &se) || se.Classification != domain.Secret || se.Op != domain.OpRetrieve {
		t.Errorf("StorageError = %+v", se)
	}

	last := f.svc.RecentAudit(1)[0]
	if last.Success || last.Operation != domain.OpRetrieve {
		t.Errorf("last audit = %+v", last)
	}
}

func TestStorageService_IntegrityFailureLoggedOnce(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	svc, err := NewStorageService(f.backend, f.svc.cipher, f.svc.passwords, StorageOptions{},
		WithLogger(log),
		WithObserver(MultiObserver{LogObserver{Logger: log}, f.obs}))
	if err != nil {
		t.Fatalf("NewStorageService: %v", err)
	}

	if err := svc.Store(ctx, "vault", "pin-1234", domain.Secret, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Secret, "vault"), func(env *domain.Envelope) {
		env.Payload.Encrypted.AuthTag[0] ^= 0x01
	})
	if _, err := svc.Retrieve(ctx, "vault", domain.Secret, nil); !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("Retrieve err = %v, want integrity failure", err)
	}

	if n := strings.Count(buf.String(), "security.integrity_failure"); n != 1 {
		t.Errorf("integrity failure logged %d times, want 1:\n%s", n, buf.String())
	}
	if f.obs.integrity.Load() != 1 {
		t.Errorf("integrity events = %d, want 1", f.obs.integrity.Load())
	}
}

func TestStorageService_IntegrityChecks(t *testing.T) {
	tests := []struct {
		name   string
		class  domain.Classification
		mutate func(f *engineFixture, t *testing.T)
	}{
		{
			name:  "public envelope checksum",
			class: domain.Public,
			mutate: func(f *engineFixture, t *testing.T) {
				f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Public, "entry"), func(env *domain.Envelope) {
					env.Checksum = checksum.Sum([]byte(`"other"`))
				})
			},
		},
		{
			name:  "public payload edited",
			class: domain.Public,
			mutate: func(f *engineFixture, t *testing.T) {
				f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Public, "entry"), func(env *domain.Envelope) {
					env.Payload = domain.PlainPayload(`{"v":"forged"}`)
				})
			},
		},
		{
			name:  "secret downgraded to plain",
			class: domain.Secret,
			mutate: func(f *engineFixture, t *testing.T) {
				f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Secret, "entry"), func(env *domain.Envelope) {
					forged := `{"v":"forged"}`
					env.Payload = domain.PlainPayload(forged)
					env.Checksum = checksum.Sum([]byte(forged))
				})
			},
		},
		{
			name:  "confidential downgraded to plain",
			class: domain.Confidential,
			mutate: func(f *engineFixture, t *testing.T) {
				f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Confidential, "entry"), func(env *domain.Envelope) {
					forged := `{"v":"forged"}`
					env.Payload = domain.PlainPayload(forged)
					env.Checksum = checksum.Sum([]byte(forged))
				})
			},
		},
		{
			name:  "public envelope substituted into confidential slot",
			class: domain.Confidential,
			mutate: func(f *engineFixture, t *testing.T) {
				ctx := context.Background()
				if err := f.svc.Store(ctx, "entry", map[string]string{"v": "public"}, domain.Public, StoreOptions{}); err != nil {
					t.Fatal(err)
				}
				raw, _ := f.backend.raw(PhysicalKey(DefaultNamespace, domain.Public, "entry"))
				f.backend.setRaw(PhysicalKey(DefaultNamespace, domain.Confidential, "entry"), raw)
			},
		},
		{
			name:  "secret bundle moved to another key",
			class: domain.Secret,
			mutate: func(f *engineFixture, t *testing.T) {
				ctx := context.Background()
				if err := f.svc.Store(ctx, "other", map[string]string{"v": "other"}, domain.Secret, StoreOptions{}); err != nil {
					t.Fatal(err)
				}
				raw, _ := f.backend.raw(PhysicalKey(DefaultNamespace, domain.Secret, "other"))
				f.backend.setRaw(PhysicalKey(DefaultNamespace, domain.Secret, "entry"), raw)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngine(t, newMockBackend(), StorageOptions{})
			ctx := context.Background()
			if err := f.svc.Store(ctx, "entry", map[string]string{"v": "original"}, tt.class, StoreOptions{}); err != nil {
				t.Fatal(err)
			}
			tt.mutate(f, t)

			var got map[string]string
			found, err := f.svc.Retrieve(ctx, "entry", tt.class, &got)
			if found || !errors.Is(err, domain.ErrIntegrity) {
				t.Fatalf("Retrieve = %v, %v; want integrity failure", found, err)
			}
			if got != nil {
				t.Errorf("target populated: %v", got)
			}
		})
	}
}

func TestStorageService_MalformedEnvelope(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	f.backend.setRaw(PhysicalKey(DefaultNamespace, domain.Internal, "junk"), []byte("not json"))

	_, err := f.svc.Retrieve(context.Background(), "junk", domain.Internal, nil)
	if !errors.Is(err, domain.ErrEnvelopeMalformed) {
		t.Fatalf("err = %v, want ErrEnvelopeMalformed", err)
	}
	var se *domain.StorageError
	if !errors.As(err, &se) || se.Stage != domain.StageParse {
		t.Errorf("stage = %+v", se)
	}
}

func TestStorageService_Expiration(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if err := f.svc.Store(ctx, "otp", "123456", domain.Confidential, StoreOptions{Expiration: time.Minute}); err != nil {
		t.Fatal(err)
	}
	raw, _ := f.backend.raw(PhysicalKey(DefaultNamespace, domain.Confidential, "otp"))
	env, _ := domain.ParseEnvelope(raw)
	if env.ExpiresAt == nil || *env.ExpiresAt != f.clock.Now().Add(time.Minute).UnixMilli() {
		t.Fatalf("expiresAt = %v", env.ExpiresAt)
	}

	f.clock.Advance(59 * time.Second)
	if ok, err := f.svc.Exists(ctx, "otp", domain.Confidential); !ok || err != nil {
		t.Fatalf("Exists before expiry = %v, %v", ok, err)
	}

	f.clock.Advance(time.Second)
	var code string
	found, err := f.svc.Retrieve(ctx, "otp", domain.Confidential, &code)
	if found || err != nil {
		t.Fatalf("Retrieve after expiry = %v, %v; want false, nil", found, err)
	}
	if code != "" {
		t.Errorf("target populated: %q", code)
	}
	if f.backend.len() != 0 {
		t.Error("expired entry not deleted")
	}

	last := f.svc.RecentAudit(1)[0]
	if last.Operation != domain.OpExpired || last.Success || last.Error != "entry expired" {
		t.Errorf("last audit = %+v", last)
	}
}

func TestStorageService_AuditHoldsNoSecrets(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if err := f.svc.Store(ctx, "vault", map[string]string{"pin": "987654"}, domain.Secret, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if _, err := f.svc.Retrieve(ctx, "vault", domain.Secret, &v); err != nil {
		t.Fatal(err)
	}
	f.backend.mutate(t, PhysicalKey(DefaultNamespace, domain.Secret, "vault"), func(env *domain.Envelope) {
		env.Payload.Encrypted.AuthTag[0] ^= 0x01
	})
	_, _ = f.svc.Retrieve(ctx, "vault", domain.Secret, &v)

	raw, _ := f.backend.raw(PhysicalKey(DefaultNamespace, domain.Secret, "vault"))
	env, _ := domain.ParseEnvelope(raw)

	trail, err := json.Marshal(f.svc.AuditTrail())
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"987654", env.Payload.Encrypted.Checksum} {
		if bytes.Contains(trail, []byte(secret)) {
			t.Errorf("audit trail contains %q", secret)
		}
	}
	if len(f.svc.AuditTrail()) != 3 {
		t.Errorf("audit len = %d, want 3", len(f.svc.AuditTrail()))
	}
}

func TestStorageService_ValidationFailures(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want *domain.DomainError
	}{
		{"key with space", func() error {
			return f.svc.Store(ctx, "bad key", 1, domain.Public, StoreOptions{})
		}, domain.ErrKeyFormat},
		{"empty key", func() error {
			_, err := f.svc.Retrieve(ctx, "", domain.Public, nil)
			return err
		}, domain.ErrKeyFormat},
		{"key too long", func() error {
			_, err := f.svc.Exists(ctx, strings.Repeat("k", 101), domain.Public)
			return err
		}, domain.ErrKeyFormat},
		{"unknown classification", func() error {
			return f.svc.Delete(ctx, "fine", domain.Classification(9))
		}, domain.ErrInvalidClassification},
		{"negative expiration", func() error {
			return f.svc.Store(ctx, "fine", 1, domain.Public, StoreOptions{Expiration: -time.Second})
		}, domain.ErrValidation},
		{"unserializable value", func() error {
			return f.svc.Store(ctx, "fine", func() {}, domain.Public, StoreOptions{})
		}, domain.ErrSerialization},
		{"rejected request", func() error {
			return f.svc.Reject(domain.OpStore, "fine", domain.Unclassified, domain.ErrInvalidClassification.WithDetails("topsecret"))
		}, domain.ErrInvalidClassification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.svc.AuditTrail())
			err := tt.run()
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %s", err, tt.want.Code)
			}
			var se *domain.StorageError
			if !errors.As(err, &se) {
				t.Fatalf("err is not a StorageError: %T", err)
			}
			trail := f.svc.AuditTrail()
			if len(trail) != before+1 || trail[len(trail)-1].Success {
				t.Errorf("failure not audited: %+v", trail)
			}
			if !strings.Contains(trail[len(trail)-1].Error, tt.want.Code) {
				t.Errorf("audit error = %q", trail[len(trail)-1].Error)
			}
		})
	}

	if f.backend.len() != 0 {
		t.Error("failed operations wrote to the backend")
	}
}

func TestStorageService_PersistFailure(t *testing.T) {
	backend := newMockBackend()
	backend.putErr = errors.New("backend offline")
	f := newEngine(t, backend, StorageOptions{})

	err := f.svc.Store(context.Background(), "k", "v", domain.Internal, StoreOptions{})
	if !errors.Is(err, domain.ErrStorageBackend) {
		t.Fatalf("err = %v", err)
	}
	var se *domain.StorageError
	if !errors.As(err, &se) || se.Stage != domain.StagePersist {
		t.Errorf("stage = %+v", se)
	}
	if backend.len() != 0 {
		t.Error("entry written despite failure")
	}
	if got := f.svc.RecentAudit(1)[0].Error; strings.Contains(got, "backend offline") {
		t.Errorf("audit leaks backend cause: %q", got)
	}
}

func TestStorageService_CancelledContext(t *testing.T) {
	for _, c := range []domain.Classification{domain.Public, domain.Secret} {
		t.Run(c.String(), func(t *testing.T) {
			f := newEngine(t, newMockBackend(), StorageOptions{})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := f.svc.Store(ctx, "k", "v", c, StoreOptions{})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("err = %v, want Canceled", err)
			}
			if f.backend.len() != 0 {
				t.Error("cancelled store wrote to the backend")
			}
		})
	}
}

func TestStorageService_ExistsAndDelete(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if ok, err := f.svc.Exists(ctx, "token", domain.Internal); ok || err != nil {
		t.Fatalf("Exists on empty = %v, %v", ok, err)
	}
	if err := f.svc.Store(ctx, "token", "abc", domain.Internal, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.svc.Exists(ctx, "token", domain.Internal); !ok {
		t.Error("Exists = false after Store")
	}
	if ok, _ := f.svc.Exists(ctx, "token", domain.Public); ok {
		t.Error("entries are scoped by classification")
	}

	if err := f.svc.Delete(ctx, "token", domain.Internal); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.svc.Exists(ctx, "token", domain.Internal); ok {
		t.Error("Exists = true after Delete")
	}
	if err := f.svc.Delete(ctx, "token", domain.Internal); err != nil {
		t.Errorf("second Delete: %v", err)
	}

	found, err := f.svc.Retrieve(ctx, "token", domain.Internal, nil)
	if found || err != nil {
		t.Errorf("Retrieve after Delete = %v, %v", found, err)
	}
}

func TestStorageService_AccessCount(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()
	physical := PhysicalKey(DefaultNamespace, domain.Secret, "counter")

	if err := f.svc.Store(ctx, "counter", 1, domain.Secret, StoreOptions{RequireStrongAuth: true}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		f.clock.Advance(time.Second)
		if ok, err := f.svc.Retrieve(ctx, "counter", domain.Secret, nil); !ok || err != nil {
			t.Fatalf("Retrieve = %v, %v", ok, err)
		}
	}

	raw, _ := f.backend.raw(physical)
	env, _ := domain.ParseEnvelope(raw)
	if env.AccessCount != 2 {
		t.Errorf("accessCount = %d, want 2", env.AccessCount)
	}
	if env.UpdatedAt != f.clock.Now().UnixMilli() || env.UpdatedAt <= env.CreatedAt {
		t.Errorf("updatedAt = %d, createdAt = %d", env.UpdatedAt, env.CreatedAt)
	}
	if !env.RequireStrongAuth || !f.backend.opts[physical].RequireAuthentication {
		t.Error("rewrite dropped strong authentication")
	}
}

func TestStorageService_AccessCountPersistFailureIgnored(t *testing.T) {
	backend := newMockBackend()
	backend.failPutAfter = 1
	f := newEngine(t, backend, StorageOptions{})
	ctx := context.Background()

	if err := f.svc.Store(ctx, "k", "v", domain.Internal, StoreOptions{}); err != nil {
		t.Fatal(err)
	}
	var v string
	found, err := f.svc.Retrieve(ctx, "k", domain.Internal, &v)
	if !found || err != nil || v != "v" {
		t.Fatalf("Retrieve = %v, %v, %q", found, err, v)
	}
}

func TestStorageService_Stats(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	if st, err := f.svc.Stats(ctx); err != nil || st.TotalEntries != 0 || st.SecurityScore != 0 {
		t.Fatalf("empty Stats = %+v, %v", st, err)
	}

	for _, c := range domain.Classifications {
		if err := f.svc.Store(ctx, "item", c.String(), c, StoreOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.svc.Store(ctx, "short", "x", domain.Secret, StoreOptions{Expiration: time.Second}); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Second)

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// public and internal plain, confidential and both secrets encrypted
	if st.TotalEntries != 5 || st.EncryptedEntries != 3 || st.ExpiredEntries != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if st.SecurityScore != 60 {
		t.Errorf("securityScore = %d, want 60", st.SecurityScore)
	}
	if st.UsedSpaceBytes <= 0 {
		t.Errorf("usedSpaceBytes = %d", st.UsedSpaceBytes)
	}
}

func TestStorageService_CleanupExpired(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *engineFixture) {
		t.Helper()
		for _, key := range []string{"a", "b"} {
			if err := f.svc.Store(ctx, key, key, domain.Internal, StoreOptions{Expiration: time.Minute}); err != nil {
				t.Fatal(err)
			}
		}
		if err := f.svc.Store(ctx, "keep", "keep", domain.Confidential, StoreOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("registry", func(t *testing.T) {
		f := newEngine(t, newMockBackend(), StorageOptions{})
		seed(t, f)
		f.clock.Advance(2 * time.Minute)

		n, err := f.svc.CleanupExpired(ctx)
		if err != nil || n != 2 {
			t.Fatalf("CleanupExpired = %d, %v; want 2", n, err)
		}
		if f.backend.len() != 1 {
			t.Errorf("backend holds %d entries, want 1", f.backend.len())
		}
		if n, _ := f.svc.CleanupExpired(ctx); n != 0 {
			t.Errorf("second cleanup removed %d", n)
		}
	})

	t.Run("backend listing", func(t *testing.T) {
		backend := listingBackend{newMockBackend()}
		writer := newEngine(t, backend, StorageOptions{})
		seed(t, writer)

		// A fresh engine has an empty registry and must enumerate the backend.
		reader := newEngine(t, backend, StorageOptions{})
		reader.clock.Advance(2 * time.Minute)

		n, err := reader.svc.CleanupExpired(ctx)
		if err != nil || n != 2 {
			t.Fatalf("CleanupExpired = %d, %v; want 2", n, err)
		}
		expired := 0
		for _, r := range reader.svc.AuditTrail() {
			if r.Operation == domain.OpExpired {
				expired++
			}
		}
		if expired != 2 {
			t.Errorf("expired audit records = %d, want 2", expired)
		}
	})

	t.Run("caller supplied keys", func(t *testing.T) {
		backend := newMockBackend()
		writer := newEngine(t, backend, StorageOptions{})
		seed(t, writer)

		reader := newEngine(t, backend, StorageOptions{})
		reader.clock.Advance(2 * time.Minute)

		if n, _ := reader.svc.CleanupExpired(ctx); n != 0 {
			t.Fatalf("unknown entries removed: %d", n)
		}
		n, err := reader.svc.CleanupExpiredKeys(ctx, []EntryRef{
			{Key: "a", Classification: domain.Internal},
			{Key: "b", Classification: domain.Internal},
			{Key: "keep", Classification: domain.Confidential},
			{Key: "missing", Classification: domain.Secret},
		})
		if err != nil || n != 2 {
			t.Fatalf("CleanupExpiredKeys = %d, %v; want 2", n, err)
		}
	})

	t.Run("other namespaces untouched", func(t *testing.T) {
		backend := listingBackend{newMockBackend()}
		other := newEngine(t, backend, StorageOptions{Namespace: "other"})
		if err := other.svc.Store(ctx, "a", "x", domain.Public, StoreOptions{Expiration: time.Second}); err != nil {
			t.Fatal(err)
		}

		f := newEngine(t, backend, StorageOptions{})
		f.clock.Advance(time.Hour)
		if n, err := f.svc.CleanupExpired(ctx); n != 0 || err != nil {
			t.Errorf("CleanupExpired = %d, %v", n, err)
		}
		if backend.len() != 1 {
			t.Error("entry of another namespace removed")
		}
	})
}

func TestParsePhysicalKey(t *testing.T) {
	tests := []struct {
		physical string
		want     EntryRef
		ok       bool
	}{
		{"securestore_secret_user_settings_42", EntryRef{Key: "user_settings_42", Classification: domain.Secret}, true},
		{"securestore_public_a", EntryRef{Key: "a", Classification: domain.Public}, true},
		{"securestore_SECRET_a", EntryRef{}, false},
		{"securestore_topsecret_a", EntryRef{}, false},
		{"other_public_a", EntryRef{}, false},
		{"securestore_public_", EntryRef{}, false},
	}
	for _, tt := range tests {
		got, ok := parsePhysicalKey(DefaultNamespace, tt.physical)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parsePhysicalKey(%q) = %+v, %v", tt.physical, got, ok)
		}
	}
}

func TestStorageService_ConcurrentAccess(t *testing.T) {
	f := newEngine(t, newMockBackend(), StorageOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + string(rune('a'+i))
			if err := f.svc.Store(ctx, key, i, domain.Confidential, StoreOptions{}); err != nil {
				errs <- err
				return
			}
			var got int
			if _, err := f.svc.Retrieve(ctx, key, domain.Confidential, &got); err != nil || got != i {
				errs <- errors.Join(err, errors.New("value mismatch"))
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if len(f.svc.AuditTrail()) != 16 {
		t.Errorf("audit len = %d, want 16", len(f.svc.AuditTrail()))
	}
}
