package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/velotracker/apiserver/internal/logger"
	"github.com/velotracker/apiserver/internal/oauth"
	"github.com/velotracker/apiserver/internal/services"
	"github.com/velotracker/apiserver/internal/store"
	"github.com/velotracker/apiserver/internal/token"
	"github.com/velotracker/apiserver/types"
)

// mockUserRepo is an in-memory implementation of services.UserRepository.
type mockUserRepo struct {
	users  map[int]types.User
	nextID int
	err    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = m.nextID
	m.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

func (m *mockUserRepo) UpdateIdentity(ctx context.Context, user types.User) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	existing, ok := m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, other := range m.users {
		if id != user.ID && other.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = time.Now()
	m.users[user.ID] = existing
	return existing, nil
}

func (m *mockUserRepo) SetResetCode(ctx context.Context, email, code string, expires time.Time) error {
	if m.err != nil {
		return m.err
	}
	for id, user := range m.users {
		if user.Email == email {
			user.ResetCode.String = code
			user.ResetCode.Valid = true
			user.ResetCodeExpires.Time = expires
			user.ResetCodeExpires.Valid = true
			m.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockUserRepo) GetByEmailAndCode(ctx context.Context, email, code string) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	for _, user := range m.users {
		if user.Email == email && user.ResetCode.Valid && user.ResetCode.String == code &&
			user.ResetCodeExpires.Valid && user.ResetCodeExpires.Time.After(time.Now()) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, email, code, passwordHash string) error {
	if m.err != nil {
		return m.err
	}
	for id, user := range m.users {
		if user.Email == email && user.ResetCode.Valid && user.ResetCode.String == code &&
			user.ResetCodeExpires.Valid && user.ResetCodeExpires.Time.After(time.Now()) {
			user.PasswordHash = passwordHash
			user.ResetCode.Valid = false
			user.ResetCodeExpires.Valid = false
			m.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

// mockRideRepo is an in-memory implementation of services.RideRepository.
type mockRideRepo struct {
	rides  map[int]types.Ride
	nextID int
}

func newMockRideRepo() *mockRideRepo {
	return &mockRideRepo{rides: map[int]types.Ride{}, nextID: 1}
}

func (m *mockRideRepo) Create(ctx context.Context, ride types.Ride) (types.Ride, error) {
	ride.ID = m.nextID
	m.nextID++
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	m.rides[ride.ID] = ride
	return ride, nil
}

func (m *mockRideRepo) ListByUser(ctx context.Context, userID int) ([]types.Ride, error) {
	rides := make([]types.Ride, 0)
	for _, ride := range m.rides {
		if ride.UserID == userID {
			rides = append(rides, ride)
		}
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].StartTime.After(rides[j].StartTime)
	})
	return rides, nil
}

func (m *mockRideRepo) GetByID(ctx context.Context, userID, id int) (types.Ride, error) {
	ride, ok := m.rides[id]
	if !ok || ride.UserID != userID {
		return types.Ride{}, store.ErrNotFound
	}
	return ride, nil
}

func (m *mockRideRepo) Update(ctx context.Context, userID, id int, title, notes string) (types.Ride, error) {
	ride, ok := m.rides[id]
	if !ok || ride.UserID != userID {
		return types.Ride{}, store.ErrNotFound
	}
	ride.Title = title
	ride.Notes = notes
	ride.UpdatedAt = time.Now()
	m.rides[id] = ride
	return ride, nil
}

func (m *mockRideRepo) Delete(ctx context.Context, userID, id int) error {
	ride, ok := m.rides[id]
	if !ok || ride.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.rides, id)
	return nil
}

// mockMailer records sent recovery codes.
type mockMailer struct {
	sentTo    []string
	sentCodes []string
	err       error
}

func (m *mockMailer) SendResetCode(ctx context.Context, to, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sentTo = append(m.sentTo, to)
	m.sentCodes = append(m.sentCodes, code)
	return nil
}

// mockVerifier returns a fixed payload or error.
type mockVerifier struct {
	payload oauth.Payload
	err     error
}

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (oauth.Payload, error) {
	if m.err != nil {
		return oauth.Payload{}, m.err
	}
	return m.payload, nil
}

// testEnv bundles a fully wired router with its fakes.
type testEnv struct {
	router   *chi.Mux
	userRepo *mockUserRepo
	rideRepo *mockRideRepo
	mailer   *mockMailer
	verifier *mockVerifier
	tokens   *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := token.New("test-secret")
	require.NoError(t, err)

	env := &testEnv{
		userRepo: newMockUserRepo(),
		rideRepo: newMockRideRepo(),
		mailer:   &mockMailer{},
		verifier: &mockVerifier{},
		tokens:   tokens,
	}

	log := logger.New(0)
	userService := services.NewUserService(env.userRepo)
	rideService := services.NewRideService(env.rideRepo)
	userHandler := NewUserHandler(userService, tokens, env.verifier, env.mailer, log)
	authMiddleware := RequireAuth(tokens)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, userHandler, authMiddleware)
	})
	router.Route("/api/rides", func(r chi.Router) {
		RideRouter(r, rideService, log, authMiddleware)
	})
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
