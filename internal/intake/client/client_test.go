package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/form"
)

func fillRequired(c *Client) {
	c.State.CompanyName = "Acme"
	c.State.Instagram = "acme"
	c.State.BrandVoice.Text = "voice"
	c.State.SalesPitch.Text = "pitch"
	c.State.OfferInfo.Text = "offers"
	c.State.BrandFAQ.Text = "faq"
	c.State.ProductFAQ.Text = "faq"
	c.State.SalesGuide.Text = "guide"
	c.State.LeadQualification.Text = "criteria"
}

func TestSubmitValidationGateNoNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	section, res, err := c.Submit(context.Background())

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, form.SectionBrandInfo, section)
	assert.Equal(t, "Instagram Handle is required", err.Error())
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmitSuccessResetsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/submit/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "Acme", r.FormValue("companyName"))
		assert.Equal(t, "acme", r.FormValue("instagram"))
		assert.Equal(t, "voice", r.FormValue("brandVoice"))

		file, header, err := r.FormFile("salesGuideFile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "guide.pdf", header.Filename)

		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "record": "recXYZ"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	fillRequired(c)
	c.State.SalesGuide.Files = []form.File{{
		Name:        "guide.pdf",
		ContentType: "application/pdf",
		Data:        []byte("pdf-bytes"),
	}}

	section, res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, section)
	require.NotNil(t, res)
	assert.Equal(t, "recXYZ", res.RecordID)

	// accepted submission clears the form
	assert.Equal(t, form.State{}, c.State)
	assert.Empty(t, c.FieldErrors)
}

func TestSubmitServerFailureIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"error":"Submission failed"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	fillRequired(c)

	section, res, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, -1, section)
	assert.Equal(t, apierrors.ErrGeneric, err)

	// failed submission keeps the state for retry
	assert.Equal(t, "Acme", c.State.CompanyName)
}

func TestSubmitNotOkBodyIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	fillRequired(c)

	_, res, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, apierrors.ErrGeneric, err)
}

func TestValidateFieldUpdatesErrors(t *testing.T) {
	c := NewClient("http://localhost")
	c.State.Email = "broken"
	c.ValidateField("email")
	assert.Equal(t, "Enter a valid email address", c.FieldErrors["email"])

	c.State.Email = "ok@acme.com"
	c.ValidateField("email")
	assert.Empty(t, c.FieldErrors)
}
