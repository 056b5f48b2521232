package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
)

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu       sync.Mutex
	byUserID map[string]*model.User
	nextID   int

	// set to simulate storage failures
	createErr error
	getErr    error
	// called inside Create before the uniqueness check, to simulate a racing writer
	beforeCreate func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byUserID: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byUserID {
		if u.UserID == user.UserID || u.Nickname == user.Nickname {
			return apperror.DuplicateKey("user already exists", nil)
		}
	}
	f.nextID++
	user.ID = "user-" + strconv.Itoa(f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.byUserID[user.UserID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byUserID[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByNickname(ctx context.Context, nickname string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byUserID {
		if u.Nickname == nickname {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", nickname)
}

// insertRaw stores a user directly, bypassing CredentialStore.
func (f *fakeUserRepo) insertRaw(u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUserID[u.UserID] = &u
}

func (f *fakeUserRepo) delete(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byUserID, userID)
}

func newTestCredentialStore(t *testing.T) (*CredentialStore, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	return NewCredentialStore(repo, NewPasswordService(bcrypt.MinCost)), repo
}

// mustRegister creates a user through the store.
func mustRegister(t *testing.T, store *CredentialStore, userID, password, nickname string) *model.User {
	t.Helper()
	u, err := store.Create(context.Background(), model.NewUser{UserID: userID, Password: password, Nickname: nickname})
	if err != nil {
		t.Fatalf("Create(%s): %v", userID, err)
	}
	return u
}
