package users_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"service-finder/internal/events"
	"service-finder/internal/store/memory"
	"service-finder/internal/users"
	"service-finder/pkg/apperr"
	"service-finder/pkg/jwt"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newService(t *testing.T, pub events.Publisher) *users.Service {
	t.Helper()
	require.NoError(t, jwt.Init("test-secret", time.Hour))
	return users.NewService(memory.NewUsers(), pub, bcrypt.MinCost)
}

func TestRegister_PublishesEvent(t *testing.T) {
	done := make(chan struct{}, 1)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, events.TopicUserRegistered, mock.AnythingOfType("string"), mock.AnythingOfType("events.UserRegisteredEvent")).
		Return(nil).
		Run(func(mock.Arguments) { done <- struct{}{} })
	svc := newService(t, pub)

	resp, err := svc.Register(context.Background(), users.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully!", resp.Message)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user.registered was not published")
	}
	pub.AssertExpectations(t)
}

func TestRegister_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := newService(t, pub)

	_, err := svc.Register(context.Background(), users.RegisterRequest{Email: "ann@x.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	_, err := svc.Register(ctx, users.RegisterRequest{Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, users.RegisterRequest{Email: "ann@x.com", Password: "other"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "User already exists", apperr.PublicMessage(err))
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, users.RegisterRequest{Email: "not-an-email", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Register(ctx, users.RegisterRequest{Email: "ann@x.com"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLogin(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	_, err := svc.Register(ctx, users.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, users.LoginRequest{Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful!", resp.Message)
	assert.Equal(t, users.Identity{Name: "Ann", Email: "ann@x.com"}, resp.User)

	claims, err := jwt.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleUser, claims.Role)
	assert.Equal(t, "ann@x.com", claims.Email)

	_, err = svc.Login(ctx, users.LoginRequest{Email: "ann@x.com", Password: "bad"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidCredentials))

	// emails are matched exactly
	_, err = svc.Login(ctx, users.LoginRequest{Email: "ANN@x.com", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidCredentials))
}
