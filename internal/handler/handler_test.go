package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/attendance"
	"bioattend/internal/auth"
	"bioattend/internal/biometric"
	"bioattend/internal/store"
)

const (
	signingKey = "handler-test-key"
	issuer     = "bioattend"
)

type staticCheck bool

func (s staticCheck) Healthy(context.Context) bool { return bool(s) }

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string, []byte) (biometric.Outcome, error) {
	return biometric.Judge(9, 15), nil
}

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T, verifier biometric.Verifier, checks map[string]Checker) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := store.NewDB(store.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := attendance.NewService(attendance.NewRepository(db), attendance.Options{Verifier: verifier})
	h := New(svc, checks, nil)

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	h.Register(r.Group("/v1", auth.StaffAuth(signingKey, issuer)))

	token, _, err := auth.Issue("staff-1", auth.RoleStaff, issuer, signingKey, time.Hour)
	require.NoError(t, err)
	return &api{t: t, router: r, token: token}
}

func (a *api) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (a *api) id(out map[string]any, keys ...string) string {
	a.t.Helper()
	cur := out
	for _, k := range keys[:len(keys)-1] {
		cur = cur[k].(map[string]any)
	}
	id, ok := cur[keys[len(keys)-1]].(string)
	require.True(a.t, ok, "missing %v in %v", keys, out)
	return id
}

func tpl(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func (a *api) setup() (identityID, sessionID string) {
	a.t.Helper()
	w, out := a.do(http.MethodPost, "/v1/identities", gin.H{"name": "Ada", "enrollment_no": "E-1", "template": tpl("ada")})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	identityID = a.id(out, "identity", "id")
	assert.Equal(a.t, "staff-1", out["identity"].(map[string]any)["owner_id"])
	assert.NotContains(a.t, out["identity"], "template")

	w, out = a.do(http.MethodPost, "/v1/courses", gin.H{"name": "Compilers"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	courseID := a.id(out, "id")

	w, _ = a.do(http.MethodPost, "/v1/courses/"+courseID+"/enrollments", gin.H{"identity_id": identityID})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w, out = a.do(http.MethodPost, "/v1/sessions", gin.H{"course_id": courseID, "label": "Lecture 1", "date": "2026-02-10"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return identityID, a.id(out, "id")
}

func TestMarkAndCloseFlow(t *testing.T) {
	a := newAPI(t, nil, nil)
	identityID, sessionID := a.setup()

	w, out := a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["absent_count"])

	w, out = a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/marks", gin.H{"identity_id": identityID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "bypassed", out["verification"].(map[string]any)["decision"])

	w, out = a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/marks", gin.H{"identity_id": identityID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_marked", out["code"])

	w, out = a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, out["absent_count"])
	assert.Equal(t, []any{}, out["results"])
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t, nil, nil)
	identityID, sessionID := a.setup()

	w, out := a.do(http.MethodPost, "/v1/identities", gin.H{"name": "Bo", "enrollment_no": "E-2", "template": tpl("ada")})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_biometric", out["code"])

	w, out = a.do(http.MethodPost, "/v1/identities", gin.H{"name": "Bo", "enrollment_no": "E-2", "template": "%%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_template", out["code"])

	w, out = a.do(http.MethodPost, "/v1/identities", gin.H{"name": "Bo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", out["code"])

	w, _ = a.do(http.MethodPost, "/v1/sessions", gin.H{"course_id": "x", "label": "L", "date": "10/02/2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = a.do(http.MethodPost, "/v1/sessions/missing/marks", gin.H{"identity_id": identityID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", out["code"])

	w, out = a.do(http.MethodPost, "/v1/identities", gin.H{"name": "Bo", "enrollment_no": "E-2", "template": tpl("bo")})
	require.Equal(t, http.StatusCreated, w.Code)
	w, out = a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/marks", gin.H{"identity_id": a.id(out, "identity", "id")})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_enrolled", out["code"])
}

func TestRejectedSampleReportsScore(t *testing.T) {
	a := newAPI(t, rejectAll{}, nil)
	identityID, sessionID := a.setup()

	w, out := a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/marks", gin.H{"identity_id": identityID, "sample": tpl("ada")})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "verification_failed", out["code"])
	assert.EqualValues(t, 9, out["score"])
	assert.EqualValues(t, 15, out["threshold"])
}

func TestUpdateAndDeleteIdentity(t *testing.T) {
	a := newAPI(t, nil, nil)
	identityID, _ := a.setup()

	w, out := a.do(http.MethodPatch, "/v1/identities/"+identityID, gin.H{"name": "Ada L.", "contact": "ada@example.edu"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ada L.", out["name"])
	assert.Equal(t, "ada@example.edu", out["contact"])

	w, _ = a.do(http.MethodDelete, "/v1/identities/"+identityID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, out = a.do(http.MethodDelete, "/v1/identities/"+identityID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "identity_not_found", out["code"])
}

func TestRequiresToken(t *testing.T) {
	a := newAPI(t, nil, nil)
	a.token = "garbage"
	w, _ := a.do(http.MethodPost, "/v1/courses", gin.H{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, nil, map[string]Checker{"db": staticCheck(true), "redis": staticCheck(false)})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","db":true,"redis":false}`, w.Body.String())
}
