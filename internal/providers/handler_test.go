package providers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-finder/internal/providers"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newService(t)
	r := chi.NewRouter()
	r.Route("/api", providers.NewHandler(svc, nil).Mount)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

var joeBody = map[string]any{
	"name":            "Joe",
	"email":           "joe@x.com",
	"password":        "pw",
	"serviceCategory": "Plumber",
	"location":        "Austin",
	"profile":         map[string]any{"description": "Leaks", "phone": "555"},
}

func TestHandler_RegisterReviewLoginFlow(t *testing.T) {
	h := newRouter(t)

	rec, reg := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []any{}, reg["reviews"])
	assert.Equal(t, 0.0, reg["averageRating"])
	assert.NotContains(t, reg, "password")
	assert.NotContains(t, reg, "passwordHash")
	id, _ := reg["_id"].(string)
	require.NotEmpty(t, id)

	rec, rev := do(t, h, http.MethodPost, "/api/providers/"+id+"/reviews",
		map[string]any{"userName": "Ann", "rating": 4, "comment": "good"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 4.0, rev["averageRating"])
	assert.Equal(t, 1.0, rev["reviewCount"])
	reviews, _ := rev["reviews"].([]any)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Ann", reviews[0].(map[string]any)["userName"])

	rec, got := do(t, h, http.MethodGet, "/api/providers/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, got["averageRating"])

	rec, body := do(t, h, http.MethodPost, "/api/provider/login",
		map[string]any{"email": "joe@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid credentials", body["message"])

	rec, body = do(t, h, http.MethodPost, "/api/provider/login",
		map[string]any{"email": "joe@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Provider login successful!", body["message"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, id, body["provider"].(map[string]any)["id"])
}

func TestHandler_RegisterDuplicate(t *testing.T) {
	h := newRouter(t)
	rec, _ := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "A provider with this email already exists", body["message"])
}

func TestHandler_ListByCategory(t *testing.T) {
	h := newRouter(t)
	rec, _ := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers?category=Plumber", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Plumber", list[0]["serviceCategory"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers?category=Painter", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_GetUnknownProvider(t *testing.T) {
	h := newRouter(t)
	rec, body := do(t, h, http.MethodGet, "/api/providers/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Provider not found", body["message"])
}

func TestHandler_ReviewValidation(t *testing.T) {
	h := newRouter(t)
	_, reg := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	id := reg["_id"].(string)

	rec, body := do(t, h, http.MethodPost, "/api/providers/"+id+"/reviews",
		map[string]any{"userName": "Ann", "rating": 9, "comment": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/providers/"+id+"/reviews", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ReviewRatingMustBeWhole(t *testing.T) {
	h := newRouter(t)
	_, reg := do(t, h, http.MethodPost, "/api/provider/register", joeBody)
	id := reg["_id"].(string)

	post := func(body string) (int, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/api/providers/"+id+"/reviews", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return rec.Code, out
	}

	code, body := post(`{"userName":"Ann","rating":4.0,"comment":"good"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 4.0, body["averageRating"])
	reviews := body["reviews"].([]any)
	assert.Equal(t, 4.0, reviews[0].(map[string]any)["rating"])

	code, body = post(`{"userName":"Ann","rating":3.5,"comment":"meh"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "rating must be between 1 and 5", body["message"])
}

func TestHandler_Categories(t *testing.T) {
	h := newRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Plumber","Electrician","Carpenter","Painter","General Service"]`, rec.Body.String())
}
