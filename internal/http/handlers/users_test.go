package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/http/handlers"
	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake implementation of handlers.UserService

type fakeUserService struct {
	listFn   func(ctx context.Context) ([]user.PublicUser, error)
	getFn    func(ctx context.Context, id int64) (user.PublicUser, error)
	createFn func(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error)
	updateFn func(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error)
	deleteFn func(ctx context.Context, id int64) (user.PublicUser, error)

	updateCalls int
	deleteCalls int
	lastChanges user.Changes
}

func (f *fakeUserService) List(ctx context.Context) ([]user.PublicUser, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []user.PublicUser{}, nil
}

func (f *fakeUserService) GetByID(ctx context.Context, id int64) (user.PublicUser, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.PublicUser{ID: id}, nil
}

func (f *fakeUserService) Create(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return user.PublicUser{ID: 1, Name: req.Name, Email: req.Email, Role: req.Role}, nil
}

func (f *fakeUserService) Update(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error) {
	f.updateCalls++
	f.lastChanges = changes
	if f.updateFn != nil {
		return f.updateFn(ctx, id, changes)
	}
	return user.PublicUser{ID: id}, nil
}

func (f *fakeUserService) Delete(ctx context.Context, id int64) (user.PublicUser, error) {
	f.deleteCalls++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return user.PublicUser{ID: id}, nil
}

// as stands in for RequireAuth: it attaches a caller without needing a token.
func as(identity *user.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != nil {
			c.Set(middlewares.CtxUserID, identity.ID)
			c.Set(middlewares.CtxRole, identity.Role)
		}
		c.Next()
	}
}

var (
	admin   = &user.Identity{ID: 1, Role: user.RoleAdmin}
	regular = &user.Identity{ID: 2, Role: user.RoleUser}
)

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, caller *user.Identity, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, as(caller), h)

	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

type errorBody struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Details []struct{ Field string } `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return out
}

func TestUpdateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		caller         *user.Identity
		svcSetUp       func(*fakeUserService)
		wantStatusCode int
		wantError      string
		wantCalled     bool
	}{
		{
			name:           "bad id",
			path:           "/api/users/abc",
			body:           `{"name":"Alice"}`,
			caller:         regular,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Validation failed",
		},
		{
			name:           "empty payload",
			path:           "/api/users/2",
			body:           `{}`,
			caller:         regular,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Validation failed",
		},
		{
			name:           "validation runs before authentication",
			path:           "/api/users/0",
			body:           `{"name":"Alice"}`,
			caller:         nil,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Validation failed",
		},
		{
			name:           "unauthenticated",
			path:           "/api/users/2",
			body:           `{"name":"Alice"}`,
			caller:         nil,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "Authentication required",
		},
		{
			name:           "user updating someone else",
			path:           "/api/users/3",
			body:           `{"name":"Alice"}`,
			caller:         regular,
			wantStatusCode: http.StatusForbidden,
			wantError:      "Access denied",
		},
		{
			name:           "user setting own role together with a valid change",
			path:           "/api/users/2",
			body:           `{"name":"Alice","role":"user"}`,
			caller:         regular,
			wantStatusCode: http.StatusForbidden,
			wantError:      "Access denied",
		},
		{
			name:           "user updating self",
			path:           "/api/users/2",
			body:           `{"name":"Alice","email":"ALICE@example.com"}`,
			caller:         regular,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:           "admin changing someone's role",
			path:           "/api/users/3",
			body:           `{"role":"admin"}`,
			caller:         admin,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:   "not found",
			path:   "/api/users/99",
			body:   `{"name":"Alice"}`,
			caller: admin,
			svcSetUp: func(f *fakeUserService) {
				f.updateFn = func(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "User not found",
			wantCalled:     true,
		},
		{
			name:   "email taken",
			path:   "/api/users/2",
			body:   `{"email":"taken@example.com"}`,
			caller: regular,
			svcSetUp: func(f *fakeUserService) {
				f.updateFn = func(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
			wantError:      "Email already exists",
			wantCalled:     true,
		},
		{
			name:   "store failure is hidden",
			path:   "/api/users/2",
			body:   `{"name":"Alice"}`,
			caller: regular,
			svcSetUp: func(f *fakeUserService) {
				f.updateFn = func(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error) {
					return user.PublicUser{}, errors.New("pq: relation users does not exist")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "Internal server error",
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{}
			if tt.svcSetUp != nil {
				tt.svcSetUp(svc)
			}

			h := handlers.NewUsersHandler(svc, quietLogger())
			r := setupRouter(http.MethodPut, "/api/users/:id", tt.caller, h.UpdateUser)

			w := do(r, http.MethodPut, tt.path, tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantError != "" {
				if got := decodeError(t, w).Error; got != tt.wantError {
					t.Fatalf("got error %q, want %q", got, tt.wantError)
				}
			}

			if called := svc.updateCalls > 0; called != tt.wantCalled {
				t.Fatalf("service called=%v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestUpdateUserHandler_NormalizesAndPassesOnlySuppliedFields(t *testing.T) {
	svc := &fakeUserService{}
	h := handlers.NewUsersHandler(svc, quietLogger())
	r := setupRouter(http.MethodPut, "/api/users/:id", regular, h.UpdateUser)

	w := do(r, http.MethodPut, "/api/users/2", `{"email":"  Alice@Example.COM "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	c := svc.lastChanges
	if c.Name != nil || c.Role != nil {
		t.Fatalf("only email was supplied, got %+v", c)
	}
	if c.Email == nil || *c.Email != "alice@example.com" {
		t.Fatalf("email should be normalized, got %v", c.Email)
	}
}

func TestDeleteUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		caller         *user.Identity
		svcSetUp       func(*fakeUserService)
		wantStatusCode int
		wantError      string
		wantCalled     bool
	}{
		{name: "bad id", path: "/api/users/-1", caller: admin, wantStatusCode: http.StatusBadRequest, wantError: "Validation failed"},
		{name: "unauthenticated", path: "/api/users/3", caller: nil, wantStatusCode: http.StatusUnauthorized, wantError: "Authentication required"},
		{name: "non admin", path: "/api/users/3", caller: regular, wantStatusCode: http.StatusForbidden, wantError: "Access denied"},
		{name: "non admin deleting self", path: "/api/users/2", caller: regular, wantStatusCode: http.StatusForbidden, wantError: "Access denied"},
		{name: "admin deleting self", path: "/api/users/1", caller: admin, wantStatusCode: http.StatusForbidden, wantError: "Operation denied"},
		{name: "admin deleting other", path: "/api/users/3", caller: admin, wantStatusCode: http.StatusOK, wantCalled: true},
		{
			name:   "not found",
			path:   "/api/users/99",
			caller: admin,
			svcSetUp: func(f *fakeUserService) {
				f.deleteFn = func(ctx context.Context, id int64) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "User not found",
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{}
			if tt.svcSetUp != nil {
				tt.svcSetUp(svc)
			}

			h := handlers.NewUsersHandler(svc, quietLogger())
			r := setupRouter(http.MethodDelete, "/api/users/:id", tt.caller, h.DeleteUser)

			w := do(r, http.MethodDelete, tt.path, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if tt.wantError != "" {
				if got := decodeError(t, w).Error; got != tt.wantError {
					t.Fatalf("got error %q, want %q", got, tt.wantError)
				}
			}
			if called := svc.deleteCalls > 0; called != tt.wantCalled {
				t.Fatalf("service called=%v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestGetUserHandler(t *testing.T) {
	now := time.Now().UTC()

	svc := &fakeUserService{
		getFn: func(ctx context.Context, id int64) (user.PublicUser, error) {
			if id != 5 {
				return user.PublicUser{}, user.ErrNotFound
			}
			return user.PublicUser{ID: 5, Name: "Al", Email: "a@b.com", Role: user.RoleUser, CreatedAt: now}, nil
		},
	}
	h := handlers.NewUsersHandler(svc, quietLogger())
	r := setupRouter(http.MethodGet, "/api/users/:id", regular, h.GetUserByID)

	w := do(r, http.MethodGet, "/api/users/5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Message != "User retrieved successfully" || resp.User["email"] != "a@b.com" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if _, ok := resp.User["password"]; ok {
		t.Fatalf("password must never be serialized: %s", w.Body.String())
	}

	for path, want := range map[string]int{
		"/api/users/6":   http.StatusNotFound,
		"/api/users/0":   http.StatusBadRequest,
		"/api/users/1e3": http.StatusBadRequest,
	} {
		if w := do(r, http.MethodGet, path, ""); w.Code != want {
			t.Fatalf("%s: got %d, want %d", path, w.Code, want)
		}
	}
}

func TestListUsersHandler(t *testing.T) {
	svc := &fakeUserService{
		listFn: func(ctx context.Context) ([]user.PublicUser, error) {
			return []user.PublicUser{{ID: 1}, {ID: 2}}, nil
		},
	}
	h := handlers.NewUsersHandler(svc, quietLogger())
	r := setupRouter(http.MethodGet, "/api/users", regular, h.ListUsers)

	w := do(r, http.MethodGet, "/api/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Message string            `json:"message"`
		Users   []user.PublicUser `json:"users"`
		Count   int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Users) != 2 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	svc.listFn = func(ctx context.Context) ([]user.PublicUser, error) { return nil, errors.New("db down") }
	w = do(r, http.MethodGet, "/api/users", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("db down")) {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestCreateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		svcSetUp       func(*fakeUserService)
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"name":"Al","email":"A@B.com","password":"longenough1"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "password shorter than eight",
			body:           `{"name":"Al","email":"a@b.com","password":"short12"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown role",
			body:           `{"name":"Al","email":"a@b.com","password":"longenough1","role":"root"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"name":`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			body: `{"name":"Al","email":"a@b.com","password":"longenough1"}`,
			svcSetUp: func(f *fakeUserService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "service error",
			body: `{"name":"Al","email":"a@b.com","password":"longenough1"}`,
			svcSetUp: func(f *fakeUserService) {
				f.createFn = func(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error) {
					return user.PublicUser{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{}
			if tt.svcSetUp != nil {
				tt.svcSetUp(svc)
			}

			h := handlers.NewUsersHandler(svc, quietLogger())
			r := setupRouter(http.MethodPost, "/api/users", nil, h.CreateUser)

			w := do(r, http.MethodPost, "/api/users", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
