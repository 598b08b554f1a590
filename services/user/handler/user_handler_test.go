package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/services/auction/helpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(h *UserHandler, caller *model.Account) *gin.Engine {
	r := gin.New()
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(helpers.AccountContextKey, *caller)
			c.Next()
		})
	}
	r.POST("/users/signup", h.SignupHandler)
	r.POST("/users/login", h.LoginHandler)
	r.GET("/users/me", h.MeHandler)
	r.GET("/admin/users", h.ListUsersHandler)
	r.PUT("/admin/users/:user_id/lock", h.LockUserHandler)
	r.PUT("/admin/users/:user_id/unlock", h.UnlockUserHandler)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockUserServiceInterface(ctrl)
	router := testRouter(NewUserHandler(mockService), nil)

	t.Run("created", func(t *testing.T) {
		mockService.EXPECT().Signup(gomock.Any(), "alice", "hunter2").
			Return(model.Account{UserID: "u1", Username: "alice", Tokens: 100}, nil)
		w := doJSON(t, router, http.MethodPost, "/users/signup", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("username_taken", func(t *testing.T) {
		mockService.EXPECT().Signup(gomock.Any(), "alice", "hunter2").
			Return(model.Account{}, fmt.Errorf("service: %w", auctionerrors.ErrUsernameTaken))
		w := doJSON(t, router, http.MethodPost, "/users/signup", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing_password", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/users/signup", map[string]string{"username": "alice"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockUserServiceInterface(ctrl)
	router := testRouter(NewUserHandler(mockService), nil)

	t.Run("ok", func(t *testing.T) {
		mockService.EXPECT().Login(gomock.Any(), "alice", "hunter2").Return("signed.jwt.token", nil)
		w := doJSON(t, router, http.MethodPost, "/users/login", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "signed.jwt.token", resp.Data.Token)
	})

	t.Run("bad_credentials", func(t *testing.T) {
		mockService.EXPECT().Login(gomock.Any(), "alice", "wrong").
			Return("", fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials))
		w := doJSON(t, router, http.MethodPost, "/users/login", map[string]string{
			"username": "alice", "password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("locked_account", func(t *testing.T) {
		mockService.EXPECT().Login(gomock.Any(), "alice", "hunter2").
			Return("", fmt.Errorf("service: %w", auctionerrors.ErrAccountLocked))
		w := doJSON(t, router, http.MethodPost, "/users/login", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMeHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockUserServiceInterface(ctrl)

	t.Run("authenticated", func(t *testing.T) {
		caller := model.Account{UserID: "u1", Username: "alice", Tokens: 42}
		router := testRouter(NewUserHandler(mockService), &caller)
		w := doJSON(t, router, http.MethodGet, "/users/me", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data model.Account `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "u1", resp.Data.UserID)
		require.Equal(t, int64(42), resp.Data.Tokens)
	})

	t.Run("no_account_in_context", func(t *testing.T) {
		router := testRouter(NewUserHandler(mockService), nil)
		w := doJSON(t, router, http.MethodGet, "/users/me", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockUserServiceInterface(ctrl)
	admin := model.Account{UserID: "admin1", Username: "admin", Role: model.RoleAdmin}
	router := testRouter(NewUserHandler(mockService), &admin)

	t.Run("list_users", func(t *testing.T) {
		mockService.EXPECT().ListUsers(gomock.Any()).
			Return([]model.Account{{UserID: "u1"}, {UserID: "u2"}}, nil)
		w := doJSON(t, router, http.MethodGet, "/admin/users", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("lock_user", func(t *testing.T) {
		mockService.EXPECT().LockUser(gomock.Any(), "u1").
			Return(model.Account{UserID: "u1", Locked: true}, nil)
		w := doJSON(t, router, http.MethodPut, "/admin/users/u1/lock", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("lock_admin_refused", func(t *testing.T) {
		mockService.EXPECT().LockUser(gomock.Any(), "admin1").
			Return(model.Account{}, fmt.Errorf("service: %w", auctionerrors.ErrAccountNotLockable))
		w := doJSON(t, router, http.MethodPut, "/admin/users/admin1/lock", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unlock_user", func(t *testing.T) {
		mockService.EXPECT().UnlockUser(gomock.Any(), "u1").
			Return(model.Account{UserID: "u1", Locked: false}, nil)
		w := doJSON(t, router, http.MethodPut, "/admin/users/u1/unlock", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("lock_missing_user", func(t *testing.T) {
		mockService.EXPECT().LockUser(gomock.Any(), "missing").
			Return(model.Account{}, fmt.Errorf("service: %w", auctionerrors.ErrAccountNotFound))
		w := doJSON(t, router, http.MethodPut, "/admin/users/missing/lock", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
