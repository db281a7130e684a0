package task

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hsm-gustavo/todo-go/internal/api/middleware"
	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectTask = "SELECT id, title, status, user_id, created_at, updated_at FROM `tasks` WHERE user_id = ? AND id = ?"

func authedRequest(method, target, body, id string, store *db.Store) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	claims := &db.Claims{Email: "a@x.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}
	ctx := middleware.WithClaims(r.Context(), claims)
	ctx = middleware.WithStore(ctx, store)
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreate_DefaultsToPending(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec("INSERT INTO `tasks`").
		WithArgs("u-1", sqlmock.AnyArg(), "buy milk", db.StatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	NewHandler().Create(rec, authedRequest(http.MethodPost, "/tasks", `{"title":"  buy milk "}`, "", store))

	require.Equal(t, http.StatusCreated, rec.Code)
	var task db.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "buy milk", task.Title)
	assert.Equal(t, db.StatusPending, task.Status)
	assert.Equal(t, "u-1", task.UserID)
	assert.NotEmpty(t, task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_IgnoresClientUserID(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectExec("INSERT INTO `tasks`").
		WithArgs("u-1", sqlmock.AnyArg(), "x", db.StatusInProgress, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	body := `{"title":"x","status":"in_progress","userId":"someone-else"}`
	NewHandler().Create(rec, authedRequest(http.MethodPost, "/tasks", body, "", store))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		allowed []string
	}{
		{"missing title", `{}`, nil},
		{"blank title", `{"title":"   "}`, nil},
		{"done on create", `{"title":"x","status":"done"}`, []string{"pending", "in_progress"}},
		{"unknown status", `{"title":"x","status":"archived"}`, []string{"pending", "in_progress"}},
		{"invalid json", `not json`, nil},
		{"title too long", `{"title":"` + strings.Repeat("a", 501) + `"}`, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newStoreWithMock(t)

			rec := httptest.NewRecorder()
			NewHandler().Create(rec, authedRequest(http.MethodPost, "/tasks", tc.body, "", store))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "validation_failed", body.Error)
			assert.Equal(t, tc.allowed, body.Allowed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreate_TitleAtLimit(t *testing.T) {
	store, mock := newStoreWithMock(t)
	title := strings.Repeat("é", 500)
	mock.ExpectExec("INSERT INTO `tasks`").
		WithArgs("u-1", sqlmock.AnyArg(), title, db.StatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	body := `{"title":"  ` + title + `  "}`
	NewHandler().Create(rec, authedRequest(http.MethodPost, "/tasks", body, "", store))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_EmptyArray(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery("FROM `tasks` WHERE user_id = ?").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(taskColumns))

	rec := httptest.NewRecorder()
	NewHandler().List(rec, authedRequest(http.MethodGet, "/tasks", "", "", store))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdate_Status(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(selectTask)).
		WithArgs("u-1", "t-1").
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow("t-1", "buy milk", "pending", "u-1", now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET title = ?, status = ?, updated_at = ? WHERE user_id = ? AND id = ?")).
		WithArgs("buy milk", db.StatusBlocked, sqlmock.AnyArg(), "u-1", "t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	NewHandler().Update(rec, authedRequest(http.MethodPut, "/tasks/t-1", `{"status":"blocked"}`, "t-1", store))

	require.Equal(t, http.StatusOK, rec.Code)
	var task db.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, db.StatusBlocked, task.Status)
	assert.Equal(t, "t-1", task.ID)
	assert.Equal(t, "u-1", task.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectTask)).
		WithArgs("u-1", "t-9").
		WillReturnRows(sqlmock.NewRows(taskColumns))

	rec := httptest.NewRecorder()
	NewHandler().Update(rec, authedRequest(http.MethodPut, "/tasks/t-9", `{"title":"x"}`, "t-9", store))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decodeError(t, rec).Message)
}

func TestUpdate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty title", `{"title":"  "}`},
		{"unknown status", `{"status":"archived"}`},
		{"title too long", `{"title":"` + strings.Repeat("b", 501) + `"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newStoreWithMock(t)

			rec := httptest.NewRecorder()
			NewHandler().Update(rec, authedRequest(http.MethodPut, "/tasks/t-1", tc.body, "t-1", store))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDelete_ThenAgain(t *testing.T) {
	store, mock := newStoreWithMock(t)
	del := regexp.QuoteMeta("DELETE FROM `tasks` WHERE user_id = ? AND id = ?")
	mock.ExpectExec(del).WithArgs("u-1", "t-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(del).WithArgs("u-1", "t-1").WillReturnResult(sqlmock.NewResult(0, 0))

	h := NewHandler()

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/tasks/t-1", "", "t-1", store))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"deleted"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/tasks/t-1", "", "t-1", store))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MissingID(t *testing.T) {
	store, _ := newStoreWithMock(t)

	rec := httptest.NewRecorder()
	NewHandler().Delete(rec, authedRequest(http.MethodDelete, "/tasks/", "", "", store))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Task ID is required", decodeError(t, rec).Message)
}

func TestHandlers_RequireClaims(t *testing.T) {
	h := NewHandler()
	for name, fn := range map[string]http.HandlerFunc{
		"create": h.Create, "list": h.List, "update": h.Update, "delete": h.Delete,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
