package airtable

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobdigital/sob-intake/internal/intake/config"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		AirtableAPIKey:      "key-test",
		AirtableBaseID:      "appBase",
		AirtableTableName:   "Onboarding",
		AirtableEndpoint:    endpoint,
		AirtableContentBase: endpoint,
	}
}

func TestNewClientFailFast(t *testing.T) {
	_, err := NewClient(&config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required env var")

	_, err = NewClient(&config.Config{
		AirtableAPIKey: "key",
		AirtableBaseID: "appBase",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AIRTABLE_TABLE_NAME")
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(&config.Config{
		AirtableAPIKey:    "key",
		AirtableBaseID:    "appBase",
		AirtableTableName: "Onboarding",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.airtable.com", c.endpoint)
	assert.Equal(t, "https://content.airtable.com", c.contentBase)
	assert.Equal(t, "Onboarding", c.Table())
}

func TestCreateRecord(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/appBase/Onboarding", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"records": []map[string]interface{}{{"id": "recABC123"}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	id, err := c.CreateRecord(context.Background(), map[string]interface{}{"Company Name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "recABC123", id)
	assert.Equal(t, "Bearer key-test", gotAuth)

	records := gotBody["records"].([]interface{})
	require.Len(t, records, 1)
	fields := records[0].(map[string]interface{})["fields"].(map[string]interface{})
	assert.Equal(t, "Acme", fields["Company Name"])
}

func TestCreateRecordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_REQUEST"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.CreateRecord(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestResolveFieldID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/meta/bases/appBase/tables", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tables": []map[string]interface{}{
				{
					"id":   "tblOther",
					"name": "Other",
					"fields": []map[string]string{
						{"id": "fldX", "name": "Files"},
					},
				},
				{
					"id":   "tblMain",
					"name": "Onboarding",
					"fields": []map[string]string{
						{"id": "fldName", "name": "Company Name"},
						{"id": "fldFiles", "name": "Files"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	id, err := c.ResolveFieldID(context.Background(), "Onboarding", "Files")
	require.NoError(t, err)
	assert.Equal(t, "fldFiles", id)

	_, err = c.ResolveFieldID(context.Background(), "Onboarding", "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field Missing not found in table Onboarding")
}

func TestAttachContent(t *testing.T) {
	payload := []byte("file-bytes")
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/appBase/recABC/fldFiles/uploadAttachment", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	err = c.AttachContent(context.Background(), "recABC", "fldFiles", payload, "text/plain", "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "text/plain", gotBody["contentType"])
	assert.Equal(t, "notes.txt", gotBody["filename"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), gotBody["file"])
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/appBase/files", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-42"})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	token, err := c.UploadFile(context.Background(), []byte("data"), "guide.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "tok-42", token)
}

func TestUploadFileEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.UploadFile(context.Background(), []byte("data"), "guide.pdf", "application/pdf")
	require.Error(t, err)
	assert.Equal(t, "attachment was not stored", err.Error())
}
