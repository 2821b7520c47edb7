package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
)

func completeState() *State {
	s := &State{
		CompanyName: "Acme",
		ContactName: "Jane Doe",
		Email:       "jane@acme.com",
		Instagram:   "acme.brand",
		CRM:         "HubSpot",
	}
	s.BrandVoice.Text = "friendly"
	s.SalesPitch.Files = []File{{Name: "pitch.pdf", ContentType: "application/pdf", Data: []byte("x")}}
	s.OfferInfo.Text = "offers"
	s.BrandFAQ.Text = "faq"
	s.ProductFAQ.Text = "faq"
	s.SalesGuide.Text = "guide"
	s.LeadQualification.Text = "criteria"
	return s
}

func TestContentSatisfied(t *testing.T) {
	var c Content
	assert.False(t, c.Satisfied())

	c.Text = "   "
	assert.False(t, c.Satisfied())

	c.Text = "some text"
	assert.True(t, c.Satisfied())

	c.Text = ""
	c.Files = []File{{Name: "a.pdf"}}
	assert.True(t, c.Satisfied())

	// both present is still satisfied
	c.Text = "text"
	assert.True(t, c.Satisfied())
}

func TestFieldValidation(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("plain"))

	assert.True(t, IsValidInstagram("brand.name_1"))
	assert.False(t, IsValidInstagram("ends.with."))
	assert.False(t, IsValidInstagram("has space"))
	assert.False(t, IsValidInstagram("waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaytoolong"))

	assert.True(t, IsValidPhone("+1 (555) 123-4567"))
	assert.False(t, IsValidPhone("123"))
	assert.False(t, IsValidPhone("call me"))

	assert.True(t, IsValidURL("https://example.com/path"))
	assert.True(t, IsValidURL("example.com"))
	assert.False(t, IsValidURL("not a url"))
}

func TestValidateFieldMessages(t *testing.T) {
	s := &State{}
	fe := FieldErrors{}

	// empty values never produce errors
	s.ValidateField("email", fe)
	s.ValidateField("instagram", fe)
	s.ValidateField("website", fe)
	s.ValidateField("phone", fe)
	assert.Empty(t, fe)

	s.Email = "broken"
	s.ValidateField("email", fe)
	assert.Equal(t, "Enter a valid email address", fe["email"])

	s.Email = "ok@acme.com"
	s.ValidateField("email", fe)
	assert.NotContains(t, fe, "email")

	// leading @ is stripped before validation
	s.Instagram = "@acme.brand"
	s.ValidateField("instagram", fe)
	assert.NotContains(t, fe, "instagram")

	s.Instagram = "bad handle"
	s.ValidateField("instagram", fe)
	assert.Equal(t, "Use letters/numbers/._ (max 30); @ is added automatically", fe["instagram"])

	s.Website = "nope nope"
	s.ValidateField("website", fe)
	assert.Equal(t, "Enter a valid URL", fe["website"])

	s.Phone = "abc"
	s.ValidateField("phone", fe)
	assert.Equal(t, "Enter a valid phone number", fe["phone"])
}

func TestSectionBrandInfo(t *testing.T) {
	s := &State{
		CompanyName: "Acme",
		ContactName: "Jane",
		Email:       "jane@acme.com",
		Instagram:   "acme",
	}
	assert.True(t, s.SectionCompleted(SectionBrandInfo))

	// optional fields only block when malformed
	s.Phone = "not-a-phone"
	assert.False(t, s.SectionCompleted(SectionBrandInfo))
	s.Phone = "+15551234567"
	assert.True(t, s.SectionCompleted(SectionBrandInfo))

	s.Website = "::"
	assert.False(t, s.SectionCompleted(SectionBrandInfo))
	s.Website = "acme.com"
	assert.True(t, s.SectionCompleted(SectionBrandInfo))

	s.Email = "broken"
	assert.False(t, s.SectionCompleted(SectionBrandInfo))
}

func TestSectionContentOrSemantics(t *testing.T) {
	s := &State{}
	assert.False(t, s.SectionCompleted(SectionVoiceOffers))

	s.BrandVoice.Text = "v"
	s.SalesPitch.Text = "p"
	assert.False(t, s.SectionCompleted(SectionVoiceOffers))

	// file satisfies the slot just like text
	s.OfferInfo.Files = []File{{Name: "offers.docx"}}
	assert.True(t, s.SectionCompleted(SectionVoiceOffers))

	assert.False(t, s.SectionCompleted(SectionFAQs))
	s.BrandFAQ.Text = "b"
	s.ProductFAQ.Text = "p"
	s.SalesGuide.Files = []File{{Name: "guide.pdf"}}
	s.LeadQualification.Text = "l"
	assert.True(t, s.SectionCompleted(SectionFAQs))
}

func TestSectionTechOnlyNeedsCRM(t *testing.T) {
	s := &State{}
	assert.False(t, s.SectionCompleted(SectionTech))

	s.CRM = "HubSpot"
	assert.True(t, s.SectionCompleted(SectionTech))

	// malformed link fields never block the tech section
	s.Links.LandingPages = "definitely not a url"
	assert.True(t, s.SectionCompleted(SectionTech))
}

func TestSectionNotes(t *testing.T) {
	s := &State{}
	assert.False(t, s.SectionCompleted(SectionNotes))

	s.Notes = "see loom"
	assert.True(t, s.SectionCompleted(SectionNotes))

	s.Notes = ""
	s.LoomURL = "loom.com/share/abc"
	assert.True(t, s.SectionCompleted(SectionNotes))

	s.LoomURL = "not a url"
	assert.False(t, s.SectionCompleted(SectionNotes))

	// invalid loom blocks the section even with notes present
	s.Notes = "notes"
	assert.False(t, s.SectionCompleted(SectionNotes))
}

func TestValidateRequiredOrder(t *testing.T) {
	s := &State{}

	section, err := s.ValidateRequired()
	assert.Equal(t, SectionBrandInfo, section)
	assert.Equal(t, apierrors.ErrInstagramRequired, err)

	s.Instagram = "acme"
	section, err = s.ValidateRequired()
	assert.Equal(t, SectionVoiceOffers, section)
	assert.Equal(t, apierrors.ErrBrandVoiceRequired, err)

	s.BrandVoice.Text = "v"
	section, err = s.ValidateRequired()
	assert.Equal(t, SectionVoiceOffers, section)
	assert.Equal(t, apierrors.ErrSalesPitchRequired, err)

	s.SalesPitch.Text = "p"
	s.OfferInfo.Text = "o"
	section, err = s.ValidateRequired()
	assert.Equal(t, SectionFAQs, section)
	assert.Equal(t, apierrors.ErrBrandFAQRequired, err)

	s.BrandFAQ.Files = []File{{Name: "faq.pdf"}}
	s.ProductFAQ.Text = "p"
	s.SalesGuide.Text = "g"
	section, err = s.ValidateRequired()
	assert.Equal(t, SectionFAQs, section)
	assert.Equal(t, apierrors.ErrLeadQualRequired, err)

	s.LeadQualification.Text = "l"
	section, err = s.ValidateRequired()
	assert.Equal(t, -1, section)
	assert.NoError(t, err)
}

func TestValidateRequiredFirstErrorWins(t *testing.T) {
	// everything missing: the reported error is always the first check
	s := &State{}
	_, err := s.ValidateRequired()
	require.Error(t, err)
	assert.Equal(t, "Instagram Handle is required", err.Error())
}

func TestScalarsAndFileSlots(t *testing.T) {
	s := completeState()
	s.Links.LandingPages = "https://acme.com/lp"

	scalars := s.Scalars()
	keys := make([]string, 0, len(scalars))
	for _, kv := range scalars {
		keys = append(keys, kv[0])
	}
	assert.Equal(t, "companyName", keys[0])
	assert.Contains(t, keys, "links.landingPages")
	assert.Contains(t, keys, "leadQualification")
	assert.Contains(t, keys, "loomUrl")

	slots := s.FileSlots()
	require.Len(t, slots, 8)
	assert.Equal(t, "brandVoiceFile", slots[0].Name)
	assert.Equal(t, "accessDocs", slots[7].Name)
	assert.Len(t, slots[1].Files, 1)
}

func TestReset(t *testing.T) {
	s := completeState()
	s.Reset()
	assert.Equal(t, State{}, *s)
	assert.False(t, s.SectionCompleted(SectionBrandInfo))
}
