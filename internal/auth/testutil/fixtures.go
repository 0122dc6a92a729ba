package testutil

import (
	"time"

	"photoshoot-studio/internal/auth/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every fixture user.
const DefaultPassword = "password123"

// UserFixture provides test data for User model
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// ValidUser returns a valid user for testing
func (f *UserFixture) ValidUser() *model.User {
	return f.UserWithPassword("test@example.com", DefaultPassword)
}

// UserWithEmail returns a user with specific email
func (f *UserFixture) UserWithEmail(email string) *model.User {
	return f.UserWithPassword(email, DefaultPassword)
}

// UserWithPassword returns a password user with specific credentials.
// MinCost keeps suites fast.
func (f *UserFixture) UserWithPassword(email, password string) *model.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &model.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Provider:     "password",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// SessionFixture provides test data for Session model
type SessionFixture struct{}

// NewSessionFixture creates a new SessionFixture instance
func NewSessionFixture() *SessionFixture {
	return &SessionFixture{}
}

// SessionForUser returns a live session for user.
func (f *SessionFixture) SessionForUser(user *model.User) *model.Session {
	return &model.Session{
		ID:          "session-for-" + user.ID,
		UserID:      user.ID,
		AccessToken: "session-token-" + user.ID,
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
		User:        user.Sanitized(),
	}
}

// ExpiredSession returns an expired session
func (f *SessionFixture) ExpiredSession(userID string) *model.Session {
	return &model.Session{
		ID:        "expired-session-id",
		UserID:    userID,
		ExpiresAt: time.Now().Add(-1 * time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
}

// ProfileFixture provides test data for Profile model
type ProfileFixture struct{}

// WithUsername returns a profile for userID.
func (f *ProfileFixture) WithUsername(userID, username string) *model.Profile {
	return &model.Profile{UserID: userID, Username: username, UpdatedAt: time.Now()}
}

// TestData provides all fixtures
type TestData struct {
	Users    *UserFixture
	Sessions *SessionFixture
	Profiles *ProfileFixture
}

// NewTestData creates a new TestData instance with all fixtures
func NewTestData() *TestData {
	return &TestData{
		Users:    NewUserFixture(),
		Sessions: NewSessionFixture(),
		Profiles: &ProfileFixture{},
	}
}

// Common test emails for validation testing
var (
	ValidEmails = []string{
		"test@example.com",
		"user.name@domain.co.uk",
		"user+tag@example.org",
		"firstname.lastname@company.com",
	}

	InvalidEmails = []string{
		"invalid-email",
		"@example.com",
		"test@",
		"test.example.com",
		"test@.com",
		"test@com.",
		"test space@example.com",
	}

	ValidPasswords = []string{
		"password123",
		"StrongP@ssw0rd",
		"12345678",
	}

	InvalidPasswords = []string{
		"",
		"123",
		"1234567",
	}
)
