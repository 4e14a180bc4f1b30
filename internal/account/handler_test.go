package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reservalia/service-accounts-go/internal/account/entity"
)

func newTestHandler() (*Handler, *fakeRepo) {
	svc, repo := newTestService()
	return NewHandler(svc, zap.NewNop().Sugar()), repo
}

func registerBody(username string) string {
	return `{
		"username": "` + username + `",
		"email": "` + username + `@x.com",
		"password": "Secret1",
		"password_confirm": "Secret1",
		"account_type": "customer"
	}`
}

func doJSON(h http.HandlerFunc, method, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func asRequester(requester Requester) func(*http.Request) {
	return func(req *http.Request) {
		*req = *req.WithContext(WithRequester(req.Context(), requester))
	}
}

func withExternalID(id string) func(*http.Request) {
	return func(req *http.Request) {
		req.SetPathValue("externalId", id)
	}
}

func TestCreateEndpoint(t *testing.T) {
	h, repo := newTestHandler()

	rec := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var view entity.DetailView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "alice", view.Username)
	assert.NotEmpty(t, view.ExternalID)
	require.Len(t, repo.rows, 1)
	assert.NotEqual(t, "Secret1", repo.rows[0].PasswordHash)
}

func TestCreateEndpointValidation(t *testing.T) {
	h, repo := newTestHandler()

	body := `{"username":"ab","email":"bad","password":"pw","password_confirm":"other","account_type":"customer"}`
	rec := doJSON(h.Create, http.MethodPost, "/accounts", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
	assert.Empty(t, repo.rows)
}

func TestCreateEndpointConflict(t *testing.T) {
	h, _ := newTestHandler()

	first := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), CodeConflict)
}

func TestRetrieveEndpointNotFound(t *testing.T) {
	h, _ := newTestHandler()

	rec := doJSON(h.Retrieve, http.MethodGet, "/accounts/missing", "", withExternalID("missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEndpointRequiresOwnership(t *testing.T) {
	h, repo := newTestHandler()
	created := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	require.Equal(t, http.StatusCreated, created.Code)
	ext := repo.rows[0].ExternalID

	stranger := Requester{ExternalID: "ext-other", Username: "mallory", AccountType: entity.TypeCustomer}
	rec := doJSON(h.Update, http.MethodPut, "/accounts/"+ext,
		`{"given_name":"Alice"}`, withExternalID(ext), asRequester(stranger))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, repo.rows[0].GivenName)
}

func TestUpdateEndpointAsOwner(t *testing.T) {
	h, repo := newTestHandler()
	created := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	require.Equal(t, http.StatusCreated, created.Code)
	ext := repo.rows[0].ExternalID

	owner := Requester{ExternalID: ext, Username: "alice", AccountType: entity.TypeCustomer}
	rec := doJSON(h.Update, http.MethodPut, "/accounts/"+ext,
		`{"given_name":"Alice","family_name":"Smith"}`, withExternalID(ext), asRequester(owner))

	require.Equal(t, http.StatusOK, rec.Code)
	var view entity.DetailView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "Alice Smith", view.FullName)
}

func TestUpdateEndpointWithoutIdentity(t *testing.T) {
	h, _ := newTestHandler()

	rec := doJSON(h.Update, http.MethodPut, "/accounts/ext-1",
		`{"given_name":"Alice"}`, withExternalID("ext-1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	h, repo := newTestHandler()
	created := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	require.Equal(t, http.StatusCreated, created.Code)
	ext := repo.rows[0].ExternalID

	owner := Requester{ExternalID: ext, Username: "alice", AccountType: entity.TypeCustomer}
	rec := doJSON(h.Delete, http.MethodDelete, "/accounts/"+ext, "", withExternalID(ext), asRequester(owner))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, repo.rows[0].IsActive)
	assert.Contains(t, repo.rows[0].Username, entity.InactiveMarker)

	// the soft-deleted account is gone from the public surface
	again := doJSON(h.Retrieve, http.MethodGet, "/accounts/"+ext, "", withExternalID(ext))
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestListEndpointNeverLeaksSecrets(t *testing.T) {
	h, _ := newTestHandler()
	created := doJSON(h.Create, http.MethodPost, "/accounts", registerBody("alice"))
	require.Equal(t, http.StatusCreated, created.Code)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
	assert.NotContains(t, rec.Body.String(), "password")
}
