package goaccount

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// mockUser is the provider-side record backing mockProvider.
type mockUser struct {
	id          string
	email       string
	password    string
	displayName string
	photoURL    string
	createdAt   int64
}

// mockProvider is an in-memory IdentityProvider with per-method error
// injection, used by the engine tests. The Redis-backed reference provider is
// exercised separately in the idp package and the integration tests.
type mockProvider struct {
	mu        sync.Mutex
	users     map[string]*mockUser // keyed by lowercased email
	byID      map[string]*mockUser
	currentID string
	nextID    int
	listeners []func(*ProviderIdentity)

	createErr         error
	signInErr         error
	signOutErr        error
	reauthErr         error
	updateProfileErr  error
	updateEmailErr    error
	updatePasswordErr error
	deleteErr         error
	resetErr          error

	signOutCalls int
	reauthCalls  int
	resetEmails  []string
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		users: map[string]*mockUser{},
		byID:  map[string]*mockUser{},
	}
}

// setPassword overwrites a stored password directly, the way a provider-side
// reset (which applies no local strength policy) would.
func (m *mockProvider) setPassword(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[strings.ToLower(email)]; ok {
		u.password = password
	}
}

func (m *mockProvider) identityLocked(u *mockUser) *ProviderIdentity {
	return &ProviderIdentity{
		ID:          u.id,
		Email:       u.email,
		DisplayName: u.displayName,
		PhotoURL:    u.photoURL,
		CreatedAt:   u.createdAt,
	}
}

func (m *mockProvider) notify(identity *ProviderIdentity) {
	m.mu.Lock()
	fns := append([]func(*ProviderIdentity){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}

func (m *mockProvider) CreateAccount(_ context.Context, email, password string) (*ProviderIdentity, error) {
	m.mu.Lock()
	if m.createErr != nil {
		err := m.createErr
		m.mu.Unlock()
		return nil, err
	}
	key := strings.ToLower(email)
	if _, ok := m.users[key]; ok {
		m.mu.Unlock()
		return nil, ErrEmailInUse
	}
	m.nextID++
	u := &mockUser{
		id:        fmt.Sprintf("uid-%d", m.nextID),
		email:     email,
		password:  password,
		createdAt: time.Now().Unix(),
	}
	m.users[key] = u
	m.byID[u.id] = u
	m.currentID = u.id
	identity := m.identityLocked(u)
	m.mu.Unlock()

	m.notify(identity)
	clone := *identity
	return &clone, nil
}

func (m *mockProvider) SignIn(_ context.Context, email, password string) (*ProviderIdentity, error) {
	m.mu.Lock()
	if m.signInErr != nil {
		err := m.signInErr
		m.mu.Unlock()
		return nil, err
	}
	u, ok := m.users[strings.ToLower(email)]
	if !ok || u.password != password {
		m.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	m.currentID = u.id
	identity := m.identityLocked(u)
	m.mu.Unlock()

	m.notify(identity)
	clone := *identity
	return &clone, nil
}

func (m *mockProvider) SignOut(_ context.Context) error {
	m.mu.Lock()
	m.signOutCalls++
	if m.signOutErr != nil {
		err := m.signOutErr
		m.mu.Unlock()
		return err
	}
	m.currentID = ""
	m.mu.Unlock()

	m.notify(nil)
	return nil
}

func (m *mockProvider) Reauthenticate(_ context.Context, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reauthCalls++
	if m.reauthErr != nil {
		return m.reauthErr
	}
	u, ok := m.byID[m.currentID]
	if !ok {
		return ErrNoCurrentIdentity
	}
	if u.password != password {
		return ErrInvalidCredentials
	}
	return nil
}

func (m *mockProvider) UpdateProfile(_ context.Context, update ProfileUpdate) (*ProviderIdentity, error) {
	m.mu.Lock()
	if m.updateProfileErr != nil {
		err := m.updateProfileErr
		m.mu.Unlock()
		return nil, err
	}
	u, ok := m.byID[m.currentID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoCurrentIdentity
	}
	if update.DisplayName != "" {
		u.displayName = update.DisplayName
	}
	if update.PhotoURL != "" {
		u.photoURL = update.PhotoURL
	}
	identity := m.identityLocked(u)
	m.mu.Unlock()

	m.notify(identity)
	clone := *identity
	return &clone, nil
}

func (m *mockProvider) UpdateEmail(_ context.Context, newEmail string) (*ProviderIdentity, error) {
	m.mu.Lock()
	if m.updateEmailErr != nil {
		err := m.updateEmailErr
		m.mu.Unlock()
		return nil, err
	}
	u, ok := m.byID[m.currentID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoCurrentIdentity
	}
	key := strings.ToLower(newEmail)
	if other, taken := m.users[key]; taken && other.id != u.id {
		m.mu.Unlock()
		return nil, ErrEmailInUse
	}
	delete(m.users, strings.ToLower(u.email))
	u.email = newEmail
	m.users[key] = u
	identity := m.identityLocked(u)
	m.mu.Unlock()

	m.notify(identity)
	clone := *identity
	return &clone, nil
}

func (m *mockProvider) UpdatePassword(_ context.Context, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	u, ok := m.byID[m.currentID]
	if !ok {
		return ErrNoCurrentIdentity
	}
	u.password = newPassword
	return nil
}

func (m *mockProvider) DeleteCurrentIdentity(_ context.Context) error {
	m.mu.Lock()
	if m.deleteErr != nil {
		err := m.deleteErr
		m.mu.Unlock()
		return err
	}
	u, ok := m.byID[m.currentID]
	if !ok {
		m.mu.Unlock()
		return ErrNoCurrentIdentity
	}
	delete(m.users, strings.ToLower(u.email))
	delete(m.byID, u.id)
	m.currentID = ""
	m.mu.Unlock()

	m.notify(nil)
	return nil
}

func (m *mockProvider) SendPasswordReset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resetEmails = append(m.resetEmails, email)
	return nil
}

func (m *mockProvider) Subscribe(fn func(*ProviderIdentity)) (cancel func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	idx := len(m.listeners) - 1
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.listeners[idx] = func(*ProviderIdentity) {}
		m.mu.Unlock()
	}
}

// fakeBlob is an in-memory BlobStore recording stored objects.
type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}}
}

func (f *fakeBlob) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	return "https://blob.test/" + key, nil
}

func (f *fakeBlob) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	return nil
}
