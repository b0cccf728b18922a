package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/halryd/goaccount"
	"github.com/halryd/goaccount/password"
	"github.com/halryd/goaccount/token"
)

const (
	defaultPrefix   = "idp"
	defaultResetTTL = 15 * time.Minute
)

// Config carries the provider dependencies. Redis is required; a nil Hasher
// gets the default argon2id parameters, and a nil Tokens leaves identities
// without ID tokens.
type Config struct {
	Redis  *redis.Client
	Prefix string
	Hasher *password.Hasher
	Tokens *token.Manager

	// ResetTTL bounds the lifetime of password reset tokens.
	ResetTTL time.Duration

	// ResetHook stands in for email delivery: it receives the reset token
	// minted by SendPasswordReset.
	ResetHook func(email, resetToken string)
}

// Provider implements goaccount.IdentityProvider on top of Redis.
type Provider struct {
	redis     *redis.Client
	prefix    string
	hasher    *password.Hasher
	tokens    *token.Manager
	resetTTL  time.Duration
	resetHook func(email, resetToken string)

	mu           sync.Mutex
	current      *goaccount.ProviderIdentity
	listeners    map[int]func(*goaccount.ProviderIdentity)
	nextListener int
}

type userRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	DisplayName  string `json:"display_name,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// New validates the configuration and returns a ready provider.
func New(cfg Config) (*Provider, error) {
	if cfg.Redis == nil {
		return nil, errors.New("idp: redis client required")
	}
	hasher := cfg.Hasher
	if hasher == nil {
		h, err := password.NewHasher(password.DefaultParams())
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	resetTTL := cfg.ResetTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTTL
	}
	return &Provider{
		redis:     cfg.Redis,
		prefix:    prefix,
		hasher:    hasher,
		tokens:    cfg.Tokens,
		resetTTL:  resetTTL,
		resetHook: cfg.ResetHook,
		listeners: map[int]func(*goaccount.ProviderIdentity){},
	}, nil
}

func (p *Provider) userKey(uid string) string {
	return p.prefix + ":user:" + uid
}

func (p *Provider) emailKey(email string) string {
	return p.prefix + ":email:" + strings.ToLower(email)
}

func (p *Provider) resetKey(tok string) string {
	return p.prefix + ":reset:" + tok
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", goaccount.ErrProviderUnavailable, err)
}

// CreateAccount registers a new identity. Email uniqueness is enforced by a
// conditional write on the email index: the loser of a race gets
// goaccount.ErrEmailInUse.
func (p *Provider) CreateAccount(ctx context.Context, email, pw string) (*goaccount.ProviderIdentity, error) {
	uid := uuid.NewString()

	ok, err := p.redis.SetNX(ctx, p.emailKey(email), uid, 0).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		return nil, goaccount.ErrEmailInUse
	}

	hash, err := p.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	rec := userRecord{
		ID:           uid,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	if err := p.saveRecord(ctx, rec); err != nil {
		// Roll the index back so the address is not left claimed by a
		// half-created account.
		p.redis.Del(ctx, p.emailKey(email))
		return nil, err
	}

	identity := p.identityFromRecord(rec)
	p.setCurrent(identity)
	return cloneIdentity(identity), nil
}

// SignIn verifies the password for the given email and makes that identity
// current. Unknown addresses and wrong passwords both report
// goaccount.ErrInvalidCredentials.
func (p *Provider) SignIn(ctx context.Context, email, pw string) (*goaccount.ProviderIdentity, error) {
	uid, err := p.redis.Get(ctx, p.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, goaccount.ErrInvalidCredentials
	}
	if err != nil {
		return nil, unavailable(err)
	}

	rec, err := p.loadRecord(ctx, uid)
	if err != nil {
		return nil, err
	}

	match, err := p.hasher.Verify(pw, rec.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, goaccount.ErrInvalidCredentials
	}

	// Transparent rehash when the stored hash predates the current
	// parameters.
	if upgrade, err := p.hasher.NeedsUpgrade(rec.PasswordHash); err == nil && upgrade {
		if newHash, hashErr := p.hasher.Hash(pw); hashErr == nil {
			rec.PasswordHash = newHash
			_ = p.saveRecord(ctx, *rec)
		}
	}

	identity := p.identityFromRecord(*rec)
	p.setCurrent(identity)
	return cloneIdentity(identity), nil
}

// SignOut clears the current identity. Subscribers are notified with nil.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// Reauthenticate verifies the password of the current identity without
// changing it.
func (p *Provider) Reauthenticate(ctx context.Context, pw string) error {
	rec, err := p.currentRecord(ctx)
	if err != nil {
		return err
	}
	match, err := p.hasher.Verify(pw, rec.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return goaccount.ErrInvalidCredentials
	}
	return nil
}

// UpdateProfile applies non-empty fields to the current identity's record.
func (p *Provider) UpdateProfile(ctx context.Context, update goaccount.ProfileUpdate) (*goaccount.ProviderIdentity, error) {
	rec, err := p.currentRecord(ctx)
	if err != nil {
		return nil, err
	}
	if update.DisplayName != "" {
		rec.DisplayName = update.DisplayName
	}
	if update.PhotoURL != "" {
		rec.PhotoURL = update.PhotoURL
	}
	if err := p.saveRecord(ctx, *rec); err != nil {
		return nil, err
	}

	identity := p.identityFromRecord(*rec)
	p.setCurrent(identity)
	return cloneIdentity(identity), nil
}

// UpdateEmail moves the current identity to a new address. The new index
// entry is claimed before the old one is released, so a crash never leaves
// the account unreachable by email.
func (p *Provider) UpdateEmail(ctx context.Context, newEmail string) (*goaccount.ProviderIdentity, error) {
	rec, err := p.currentRecord(ctx)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(newEmail, rec.Email) {
		rec.Email = newEmail
		if err := p.saveRecord(ctx, *rec); err != nil {
			return nil, err
		}
		identity := p.identityFromRecord(*rec)
		p.setCurrent(identity)
		return cloneIdentity(identity), nil
	}

	ok, err := p.redis.SetNX(ctx, p.emailKey(newEmail), rec.ID, 0).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		return nil, goaccount.ErrEmailInUse
	}
	if err := p.redis.Del(ctx, p.emailKey(rec.Email)).Err(); err != nil {
		return nil, unavailable(err)
	}

	rec.Email = newEmail
	if err := p.saveRecord(ctx, *rec); err != nil {
		return nil, err
	}

	identity := p.identityFromRecord(*rec)
	p.setCurrent(identity)
	return cloneIdentity(identity), nil
}

// UpdatePassword replaces the current identity's password hash.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	rec, err := p.currentRecord(ctx)
	if err != nil {
		return err
	}
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	rec.PasswordHash = hash
	return p.saveRecord(ctx, *rec)
}

// DeleteCurrentIdentity removes the current identity's record and email index
// entry, then clears the current identity.
func (p *Provider) DeleteCurrentIdentity(ctx context.Context) error {
	rec, err := p.currentRecord(ctx)
	if err != nil {
		return err
	}
	if err := p.redis.Del(ctx, p.userKey(rec.ID), p.emailKey(rec.Email)).Err(); err != nil {
		return unavailable(err)
	}
	p.setCurrent(nil)
	return nil
}

// SendPasswordReset mints a single-use reset token for the address. Unknown
// addresses are accepted silently so the endpoint cannot be used to probe for
// accounts.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	uid, err := p.redis.Get(ctx, p.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return unavailable(err)
	}

	tok := uuid.NewString()
	if err := p.redis.Set(ctx, p.resetKey(tok), uid, p.resetTTL).Err(); err != nil {
		return unavailable(err)
	}
	if p.resetHook != nil {
		p.resetHook(email, tok)
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
// Expired, unknown, and already-used tokens all report
// goaccount.ErrResetTokenInvalid.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	uid, err := p.redis.GetDel(ctx, p.resetKey(resetToken)).Result()
	if errors.Is(err, redis.Nil) {
		return goaccount.ErrResetTokenInvalid
	}
	if err != nil {
		return unavailable(err)
	}

	rec, err := p.loadRecord(ctx, uid)
	if err != nil {
		return err
	}
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	rec.PasswordHash = hash
	return p.saveRecord(ctx, *rec)
}

// Subscribe registers a listener for current-identity changes and returns its
// cancel function. Listeners are invoked synchronously with a private copy.
func (p *Provider) Subscribe(fn func(*goaccount.ProviderIdentity)) (cancel func()) {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// CurrentIdentity returns a copy of the identity that is currently signed in,
// or nil.
func (p *Provider) CurrentIdentity() *goaccount.ProviderIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneIdentity(p.current)
}

func (p *Provider) currentRecord(ctx context.Context) (*userRecord, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current == nil {
		return nil, goaccount.ErrNoCurrentIdentity
	}
	return p.loadRecord(ctx, current.ID)
}

func (p *Provider) loadRecord(ctx context.Context, uid string) (*userRecord, error) {
	raw, err := p.redis.Get(ctx, p.userKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, goaccount.ErrNoCurrentIdentity
	}
	if err != nil {
		return nil, unavailable(err)
	}
	var rec userRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Provider) saveRecord(ctx context.Context, rec userRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := p.redis.Set(ctx, p.userKey(rec.ID), raw, 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (p *Provider) identityFromRecord(rec userRecord) *goaccount.ProviderIdentity {
	identity := &goaccount.ProviderIdentity{
		ID:          rec.ID,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
		CreatedAt:   rec.CreatedAt,
	}
	if p.tokens != nil {
		if tok, err := p.tokens.Issue(rec.ID, rec.Email); err == nil {
			identity.IDToken = tok
		}
	}
	return identity
}

// setCurrent swaps the current identity and notifies subscribers. Listeners
// run outside the provider lock so they may call back into the provider.
func (p *Provider) setCurrent(identity *goaccount.ProviderIdentity) {
	p.mu.Lock()
	p.current = cloneIdentity(identity)
	fns := make([]func(*goaccount.ProviderIdentity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cloneIdentity(identity))
	}
}

func cloneIdentity(identity *goaccount.ProviderIdentity) *goaccount.ProviderIdentity {
	if identity == nil {
		return nil
	}
	clone := *identity
	return &clone
}
