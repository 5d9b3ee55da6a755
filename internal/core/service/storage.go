package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/telemetry/audit"
	"github.com/yndnr/securestore-go/pkg/checksum"
)

var (
	keyPattern       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
	namespacePattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
)

// DefaultNamespace is used when StorageOptions.Namespace is empty.
const DefaultNamespace = "securestore"

// ValidateKey checks a logical key against ^[A-Za-z0-9_-]{1,100}$.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return domain.ErrKeyFormat.WithDetails("key must match ^[A-Za-z0-9_-]{1,100}$")
	}
	return nil
}

// PhysicalKey returns the backend key for a logical entry.
func PhysicalKey(namespace string, c domain.Classification, key string) string {
	return namespace + "_" + c.String() + "_" + key
}

// parsePhysicalKey reverses PhysicalKey for keys under namespace.
func parsePhysicalKey(namespace, physical string) (EntryRef, bool) {
	rest, ok := strings.CutPrefix(physical, namespace+"_")
	if !ok {
		return EntryRef{}, false
	}
	class, key, ok := strings.Cut(rest, "_")
	if !ok {
		return EntryRef{}, false
	}
	c, err := domain.ParseClassification(class)
	if err != nil || c.String() != class || ValidateKey(key) != nil {
		return EntryRef{}, false
	}
	return EntryRef{Key: key, Classification: c}, true
}

// StorageOptions configures a StorageService.
type StorageOptions struct {
	// Namespace prefixes every physical key. It may not contain '_'.
	Namespace string

	// DefaultEncryption decides whether Internal entries are encrypted.
	DefaultEncryption bool

	// SecurityLevel is the engine-wide hardening setting.
	SecurityLevel domain.SecurityLevel

	// AuditCap bounds the audit trail. Default: 500
	AuditCap int
}

// StoreOptions are per-call options for Store.
type StoreOptions struct {
	// Expiration is the entry lifetime. Zero means no expiry.
	Expiration time.Duration

	// RequireStrongAuth asks the backend for authenticated storage even
	// when the classification does not require it.
	RequireStrongAuth bool
}

// Stats summarises the entries of the engine's namespace.
type Stats struct {
	TotalEntries     int   `json:"totalEntries"`
	EncryptedEntries int   `json:"encryptedEntries"`
	ExpiredEntries   int   `json:"expiredEntries"`
	UsedSpaceBytes   int64 `json:"usedSpaceBytes"`
	SecurityScore    int   `json:"securityScore"`
}

// Option configures optional StorageService collaborators.
type Option func(*StorageService)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *StorageService) {
		s.logger = l
	}
}

// WithObserver sets the security event sink.
func WithObserver(o Observer) Option {
	return func(s *StorageService) {
		s.obs = o
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *StorageService) {
		s.now = now
	}
}

// StorageService is the classified secure-storage engine.
//
// It does not serialise access per key: concurrent Store and Retrieve of
// the same key need external coordination. The audit trail is safe for
// concurrent use.
type StorageService struct {
	backend   Backend
	cipher    *CipherService
	passwords *DevicePassword
	audit     *audit.Log
	registry  *keyRegistry

	namespace  string
	policyOpts domain.PolicyOptions

	logger *slog.Logger
	obs    Observer
	now    func() time.Time
}

// NewStorageService wires the engine. Invalid options are reported as
// domain.ErrConfig.
func NewStorageService(backend Backend, cipher *CipherService, passwords *DevicePassword, opts StorageOptions, options ...Option) (*StorageService, error) {
	if backend == nil || cipher == nil || passwords == nil {
		return nil, domain.ErrConfig.WithDetails("backend, cipher and device password are required")
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if !namespacePattern.MatchString(opts.Namespace) {
		return nil, domain.ErrConfig.WithDetails("namespace must match ^[A-Za-z0-9-]{1,64}$")
	}
	if opts.SecurityLevel == "" {
		opts.SecurityLevel = domain.SecurityStandard
	}

	s := &StorageService{
		backend:   backend,
		cipher:    cipher,
		passwords: passwords,
		audit:     audit.New(opts.AuditCap),
		registry:  newKeyRegistry(),
		namespace: opts.Namespace,
		policyOpts: domain.PolicyOptions{
			DefaultEncryption: opts.DefaultEncryption,
			SecurityLevel:     opts.SecurityLevel,
		},
		logger: slog.Default(),
		obs:    NopObserver{},
		now:    time.Now,
	}
	for _, o := range options {
		o(s)
	}
	s.logger = s.logger.With("component", "storage_service", "namespace", s.namespace)

	return s, nil
}

// Namespace returns the engine namespace.
func (s *StorageService) Namespace() string {
	return s.namespace
}

// Policy returns the policy applied to c.
func (s *StorageService) Policy(c domain.Classification) domain.Policy {
	return domain.PolicyFor(c, s.policyOpts)
}

func (s *StorageService) putOptions(policy domain.Policy, strongAuth bool) PutOptions {
	return PutOptions{
		RequireAuthentication: policy.RequireStrongAuth || strongAuth || policy.AccessLevel != domain.AccessDevice,
		Namespace:             s.namespace,
		AccessLevel:           policy.AccessLevel,
	}
}

// op tracks one engine call for audit and observation.
type op struct {
	s     *StorageService
	kind  domain.Operation
	key   string
	class domain.Classification
	start time.Time
}

func (s *StorageService) begin(kind domain.Operation, key string, c domain.Classification) *op {
	return &op{s: s, kind: kind, key: key, class: c, start: s.now()}
}

func (o *op) succeed() {
	o.s.record(o.kind, o.key, o.class, true, "")
	o.s.obs.OperationCompleted(o.kind, o.class, true, time.Since(o.start))
}

func (o *op) fail(stage domain.Stage, err error) error {
	o.s.record(o.kind, o.key, o.class, false, auditText(err))
	o.s.obs.OperationCompleted(o.kind, o.class, false, time.Since(o.start))
	return domain.NewStorageError(o.kind, stage, o.class, err)
}

func (o *op) validate(key string) error {
	if !o.class.Valid() {
		return o.fail(domain.StageValidate, domain.ErrInvalidClassification.WithDetails(o.class.String()))
	}
	if err := ValidateKey(key); err != nil {
		return o.fail(domain.StageValidate, err)
	}
	return nil
}

// integrityFailure reports a failed verification. The engine logs it at
// error level; the observer receives the event for metrics.
func (o *op) integrityFailure(stage domain.Stage) error {
	o.s.obs.IntegrityFailure(o.key, o.class)
	o.s.logger.Error("integrity check failed",
		"event", "security.integrity_failure",
		"key", o.key,
		"classification", o.class,
		"stage", stage)
	return o.fail(stage, domain.ErrIntegrity)
}

// auditText renders an error for the audit trail. Domain errors render
// without their cause so that nothing below the catalog message leaks.
func auditText(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}

func (s *StorageService) record(kind domain.Operation, key string, c domain.Classification, success bool, errText string) {
	s.audit.Append(domain.NewAuditRecord(kind, key, c, success, errText, s.now()))
	s.obs.AuditSize(s.audit.Len())
}

// Reject records a request refused before it could reach an engine
// operation, such as one naming an unknown classification or carrying an
// unreadable body. The failure is audited like any other and err is
// returned wrapped in a validation-stage StorageError.
func (s *StorageService) Reject(kind domain.Operation, key string, c domain.Classification, err error) error {
	return s.begin(kind, key, c).fail(domain.StageValidate, err)
}

// Store encrypts (when policy requires) and persists value.
//
// The envelope is written to the backend only after serialization,
// encryption and checksumming have all succeeded.
func (s *StorageService) Store(ctx context.Context, key string, value any, c domain.Classification, opts StoreOptions) error {
	o := s.begin(domain.OpStore, key, c)
	if err := o.validate(key); err != nil {
		return err
	}
	if opts.Expiration < 0 {
		return o.fail(domain.StageValidate, domain.ErrValidation.WithDetails("expiration must not be negative"))
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		return o.fail(domain.StageSerialize, domain.ErrSerialization.WithCause(err))
	}

	policy := s.Policy(c)
	var payload domain.Payload
	if policy.RequireEncryption {
		password, err := s.passwords.Derive(key, c)
		if err != nil {
			return o.fail(domain.StageEncrypt, domain.ErrInternal.WithCause(err))
		}
		bundle, err := s.cipher.Encrypt(ctx, serialized, password)
		memguard.WipeBytes(password)
		if err != nil {
			return o.fail(domain.StageEncrypt, err)
		}
		payload = domain.EncryptedPayload(bundle)
	} else {
		payload = domain.PlainPayload(string(serialized))
	}

	env := domain.NewEnvelope(c, payload, checksum.Sum(serialized), s.now(), opts.Expiration)
	env.RequireStrongAuth = opts.RequireStrongAuth
	data, err := env.Marshal()
	if err != nil {
		return o.fail(domain.StageSerialize, domain.ErrSerialization.WithCause(err))
	}

	if err := ctx.Err(); err != nil {
		return o.fail(domain.StagePersist, err)
	}
	physical := PhysicalKey(s.namespace, c, key)
	if err := s.backend.Put(ctx, physical, data, s.putOptions(policy, opts.RequireStrongAuth)); err != nil {
		return o.fail(domain.StagePersist, domain.ErrStorageBackend.WithCause(err))
	}

	s.registry.add(EntryRef{Key: key, Classification: c})
	o.succeed()
	return nil
}

// fetch loads and parses the envelope for key. A missing entry returns
// (nil, nil).
func (s *StorageService) fetch(ctx context.Context, o *op) (*domain.Envelope, error) {
	data, err := s.backend.Get(ctx, PhysicalKey(s.namespace, o.class, o.key))
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, o.fail(domain.StageFetch, domain.ErrStorageBackend.WithCause(err))
	}

	env, err := domain.ParseEnvelope(data)
	if err != nil {
		return nil, o.fail(domain.StageParse, err)
	}
	if env.Classification != o.class {
		// An envelope filed under another tier was substituted.
		return nil, o.integrityFailure(domain.StageVerify)
	}
	return env, nil
}

// expire deletes an expired entry and records it.
func (s *StorageService) expire(ctx context.Context, ref EntryRef) {
	if err := s.backend.Delete(ctx, PhysicalKey(s.namespace, ref.Classification, ref.Key)); err != nil {
		s.logger.Warn("failed to delete expired entry",
			"key", ref.Key,
			"classification", ref.Classification,
			"error", err)
	}
	s.registry.remove(ref)
	s.record(domain.OpExpired, ref.Key, ref.Classification, false, "entry expired")
	s.obs.OperationCompleted(domain.OpExpired, ref.Classification, false, 0)
}

// Retrieve loads the entry and decodes it into target, which must be a
// pointer as accepted by json.Unmarshal (or nil to only verify).
//
// A missing or expired entry returns (false, nil). Any verification
// failure returns an error wrapping domain.ErrIntegrity and never any
// part of the plaintext.
func (s *StorageService) Retrieve(ctx context.Context, key string, c domain.Classification, target any) (bool, error) {
	o := s.begin(domain.OpRetrieve, key, c)
	if err := o.validate(key); err != nil {
		return false, err
	}

	env, err := s.fetch(ctx, o)
	if err != nil {
		return false, err
	}
	if env == nil {
		o.succeed()
		return false, nil
	}

	now := s.now()
	if env.IsExpired(now) {
		s.expire(ctx, EntryRef{Key: key, Classification: c})
		return false, nil
	}

	policy := s.Policy(c)
	var plaintext []byte
	if env.Payload.IsEncrypted() {
		password, err := s.passwords.Derive(key, c)
		if err != nil {
			return false, o.fail(domain.StageDecrypt, domain.ErrInternal.WithCause(err))
		}
		res, err := s.cipher.Decrypt(ctx, env.Payload.Encrypted, password)
		memguard.WipeBytes(password)
		if err != nil {
			return false, o.fail(domain.StageDecrypt, err)
		}
		if !res.Verified {
			return false, o.integrityFailure(domain.StageDecrypt)
		}
		plaintext = res.Plaintext
		defer memguard.WipeBytes(plaintext)
	} else {
		if c >= domain.Confidential {
			// Confidential and Secret are always encrypted; a plain
			// payload here is a downgrade.
			return false, o.integrityFailure(domain.StageVerify)
		}
		plaintext = []byte(env.Payload.Plain)
	}

	if !checksum.Verify(plaintext, env.Checksum) {
		return false, o.integrityFailure(domain.StageVerify)
	}

	if target != nil {
		if err := json.Unmarshal(plaintext, target); err != nil {
			return false, o.fail(domain.StageDecode, domain.ErrSerialization.WithCause(err))
		}
	}

	env.Touch(now)
	if data, err := env.Marshal(); err == nil {
		physical := PhysicalKey(s.namespace, c, key)
		if err := s.backend.Put(ctx, physical, data, s.putOptions(policy, env.RequireStrongAuth)); err != nil {
			s.logger.Warn("failed to persist access count",
				"key", key,
				"classification", c,
				"error", err)
		}
	}

	s.registry.add(EntryRef{Key: key, Classification: c})
	o.succeed()
	return true, nil
}

// Delete removes the entry. It succeeds whether or not the entry existed.
func (s *StorageService) Delete(ctx context.Context, key string, c domain.Classification) error {
	o := s.begin(domain.OpDelete, key, c)
	if err := o.validate(key); err != nil {
		return err
	}

	if err := s.backend.Delete(ctx, PhysicalKey(s.namespace, c, key)); err != nil {
		return o.fail(domain.StageDelete, domain.ErrStorageBackend.WithCause(err))
	}

	s.registry.remove(EntryRef{Key: key, Classification: c})
	o.succeed()
	return nil
}

// Exists reports whether a live entry is stored under key. Expired
// entries are removed and reported as absent.
func (s *StorageService) Exists(ctx context.Context, key string, c domain.Classification) (bool, error) {
	o := s.begin(domain.OpExists, key, c)
	if err := o.validate(key); err != nil {
		return false, err
	}

	env, err := s.fetch(ctx, o)
	if err != nil {
		return false, err
	}
	if env == nil {
		o.succeed()
		return false, nil
	}
	if env.IsExpired(s.now()) {
		s.expire(ctx, EntryRef{Key: key, Classification: c})
		return false, nil
	}

	o.succeed()
	return true, nil
}

// knownEntries enumerates the namespace through the backend when it can
// list keys, and through the in-process registry otherwise.
func (s *StorageService) knownEntries(ctx context.Context) ([]EntryRef, error) {
	lister, ok := s.backend.(KeyLister)
	if !ok {
		return s.registry.list(), nil
	}

	keys, err := lister.ListKeys(ctx, s.namespace+"_")
	if err != nil {
		return nil, domain.ErrStorageBackend.WithCause(err)
	}
	refs := make([]EntryRef, 0, len(keys))
	for _, k := range keys {
		if ref, ok := parsePhysicalKey(s.namespace, k); ok {
			refs = append(refs, ref)
		}
	}
	sortRefs(refs)
	return refs, nil
}

// CleanupExpired deletes every expired entry the engine can enumerate and
// returns how many were removed.
func (s *StorageService) CleanupExpired(ctx context.Context) (int, error) {
	return s.CleanupExpiredKeys(ctx, nil)
}

// CleanupExpiredKeys is CleanupExpired with additional caller-supplied
// entries to inspect.
func (s *StorageService) CleanupExpiredKeys(ctx context.Context, extra []EntryRef) (int, error) {
	refs, err := s.knownEntries(ctx)
	if err != nil {
		return 0, err
	}
	refs = mergeRefs(refs, extra)

	now := s.now()
	removed := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !ref.Classification.Valid() || ValidateKey(ref.Key) != nil {
			continue
		}

		data, err := s.backend.Get(ctx, PhysicalKey(s.namespace, ref.Classification, ref.Key))
		if errors.Is(err, domain.ErrEntryNotFound) {
			s.registry.remove(ref)
			continue
		}
		if err != nil {
			return removed, domain.ErrStorageBackend.WithCause(err)
		}

		env, err := domain.ParseEnvelope(data)
		if err != nil {
			s.logger.Warn("skipping malformed entry during cleanup",
				"key", ref.Key,
				"classification", ref.Classification)
			continue
		}
		if env.IsExpired(now) {
			s.expire(ctx, ref)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("expired entries removed", "count", removed)
	}
	return removed, nil
}

func mergeRefs(a, b []EntryRef) []EntryRef {
	if len(b) == 0 {
		return a
	}
	seen := make(map[EntryRef]struct{}, len(a)+len(b))
	out := make([]EntryRef, 0, len(a)+len(b))
	for _, list := range [][]EntryRef{a, b} {
		for _, ref := range list {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// Stats summarises the entries the engine can enumerate.
func (s *StorageService) Stats(ctx context.Context) (Stats, error) {
	refs, err := s.knownEntries(ctx)
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	var summed int64
	now := s.now()
	for _, ref := range refs {
		data, err := s.backend.Get(ctx, PhysicalKey(s.namespace, ref.Classification, ref.Key))
		if errors.Is(err, domain.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return Stats{}, domain.ErrStorageBackend.WithCause(err)
		}
		env, err := domain.ParseEnvelope(data)
		if err != nil {
			continue
		}

		st.TotalEntries++
		summed += int64(len(data))
		if env.Payload.IsEncrypted() {
			st.EncryptedEntries++
		}
		if env.IsExpired(now) {
			st.ExpiredEntries++
		}
	}

	st.UsedSpaceBytes = summed
	if sr, ok := s.backend.(SizeReporter); ok {
		n, err := sr.UsedBytes(ctx)
		if err != nil {
			return Stats{}, domain.ErrStorageBackend.WithCause(err)
		}
		st.UsedSpaceBytes = n
	}
	if st.TotalEntries > 0 {
		st.SecurityScore = int(math.Round(100 * float64(st.EncryptedEntries) / float64(st.TotalEntries)))
	}
	return st, nil
}

// AuditTrail returns a snapshot of the audit log, oldest first.
func (s *StorageService) AuditTrail() []domain.AuditRecord {
	return s.audit.All()
}

// RecentAudit returns a snapshot of the newest n audit records.
func (s *StorageService) RecentAudit(n int) []domain.AuditRecord {
	return s.audit.Last(n)
}
