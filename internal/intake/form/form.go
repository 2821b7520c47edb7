// Пакет описывает состояние формы онбординга и правила её заполнения:
// проверку отдельных полей по мере ввода, вычисление завершённости секций и
// строгую упорядоченную проверку обязательных полей перед отправкой.
//
// Основные возможности:
//   - Union "текст ИЛИ файл" для длинных контентных полей.
//   - Вычисление завершённости каждой из пяти секций формы.
//   - Карта ошибок по полям, обновляемая независимо от завершённости секций.
//   - Упорядоченная проверка обязательных полей с точными сообщениями.
package form

import (
	"regexp"
	"strings"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
)

const SectionCount = 5

// Section indexes, in form order.
const (
	SectionBrandInfo = iota
	SectionVoiceOffers
	SectionFAQs
	SectionTech
	SectionNotes
)

var (
	emailRe     = regexp.MustCompile(`.+@.+\..+`)
	phoneRe     = regexp.MustCompile(`^\+?[0-9()\-\s]{7,20}$`)
	instagramRe = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)
	urlRe       = regexp.MustCompile(`^(https?://)?([\w-]+\.)+[\w-]{2,}(/[\w\-._~:/?#\[\]@!$&'()*+,;=.]+)?$`)
)

func IsValidEmail(v string) bool { return emailRe.MatchString(v) }
func IsValidPhone(v string) bool { return phoneRe.MatchString(v) }
func IsValidURL(v string) bool   { return urlRe.MatchString(v) }

// IsValidInstagram проверяет хендл без ведущего @: 1-30 символов из
// [A-Za-z0-9._], не заканчивается точкой.
func IsValidInstagram(v string) bool {
	return instagramRe.MatchString(v) && !strings.HasSuffix(v, ".")
}

// File - файл, подготовленный к отправке в соответствующем слоте формы.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Content - контентное поле формы: текст ИЛИ один и более файлов.
// Поле считается заполненным, если есть хотя бы одно из двух.
type Content struct {
	Text  string
	Files []File
}

func (c Content) Satisfied() bool {
	return strings.TrimSpace(c.Text) != "" || len(c.Files) > 0
}

type Links struct {
	LandingPages string
	Calendars    string
	WebinarLinks string
	FormsSurveys string
	OtherAssets  string
}

// State - состояние активной сессии формы. Живёт только на отправляющей
// стороне и сбрасывается после успешной отправки.
type State struct {
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Website     string
	Instagram   string

	// E.164 representation and its parts, when the phone widget supplies them.
	PhoneE164     string
	PhoneCountry  string
	PhoneNational string

	CRM           string
	EmailPlatform string
	Links         Links

	BrandVoice        Content
	SalesPitch        Content
	OfferInfo         Content
	BrandFAQ          Content
	ProductFAQ        Content
	SalesGuide        Content
	LeadQualification Content

	AccessDocs []File

	Credentials string
	Notes       string
	LoomURL     string
}

// FieldErrors - сообщения об ошибках по имени поля. Обновляется по мере ввода
// и не влияет на завершённость секций: некорректный email показывает ошибку,
// даже если секция всего лишь "не завершена".
type FieldErrors map[string]string

// ValidateField пересчитывает сообщение об ошибке для одного поля.
// Пустые значения ошибкой не считаются - обязательность проверяется отдельно.
func (s *State) ValidateField(name string, fe FieldErrors) {
	switch name {
	case "email":
		set(fe, "email", s.Email == "" || IsValidEmail(s.Email), "Enter a valid email address")
	case "instagram":
		stripped := strings.ReplaceAll(s.Instagram, "@", "")
		set(fe, "instagram", stripped == "" || IsValidInstagram(stripped), "Use letters/numbers/._ (max 30); @ is added automatically")
	case "website":
		set(fe, "website", s.Website == "" || IsValidURL(s.Website), "Enter a valid URL")
	case "phone":
		set(fe, "phone", s.Phone == "" || IsValidPhone(s.Phone), "Enter a valid phone number")
	}
}

func set(fe FieldErrors, name string, ok bool, msg string) {
	if ok {
		delete(fe, name)
		return
	}
	fe[name] = msg
}

// SectionCompleted сообщает, завершена ли секция. Признак чисто
// информационный: сервер его не перепроверяет.
func (s *State) SectionCompleted(idx int) bool {
	switch idx {
	case SectionBrandInfo:
		// Required: companyName, contactName, valid email, instagram present & valid.
		// Phone and website only block when present and malformed.
		if s.CompanyName == "" || s.ContactName == "" || s.Email == "" || !IsValidEmail(s.Email) {
			return false
		}
		if s.Instagram == "" || !IsValidInstagram(s.Instagram) {
			return false
		}
		if s.Phone != "" && !IsValidPhone(s.Phone) {
			return false
		}
		if s.Website != "" && !IsValidURL(s.Website) {
			return false
		}
		return true
	case SectionVoiceOffers:
		return s.BrandVoice.Satisfied() && s.SalesPitch.Satisfied() && s.OfferInfo.Satisfied()
	case SectionFAQs:
		return s.BrandFAQ.Satisfied() && s.ProductFAQ.Satisfied() &&
			s.SalesGuide.Satisfied() && s.LeadQualification.Satisfied()
	case SectionTech:
		// Only CRM is required. Other fields never block the green state,
		// even when filled with invalid URLs.
		return s.CRM != ""
	case SectionNotes:
		if s.LoomURL != "" && !IsValidURL(s.LoomURL) {
			return false
		}
		return s.Notes != "" || s.LoomURL != ""
	default:
		return false
	}
}

// requiredCheck - один шаг строгой проверки перед отправкой.
type requiredCheck struct {
	satisfied func(*State) bool
	section   int
	err       apierrors.DefinedError
}

// Fixed order: first failing check wins. The order is part of the UX contract.
var requiredChecks = []requiredCheck{
	{func(s *State) bool { return s.Instagram != "" }, SectionBrandInfo, apierrors.ErrInstagramRequired},
	{func(s *State) bool { return s.BrandVoice.Satisfied() }, SectionVoiceOffers, apierrors.ErrBrandVoiceRequired},
	{func(s *State) bool { return s.SalesPitch.Satisfied() }, SectionVoiceOffers, apierrors.ErrSalesPitchRequired},
	{func(s *State) bool { return s.OfferInfo.Satisfied() }, SectionVoiceOffers, apierrors.ErrOfferInfoRequired},
	{func(s *State) bool { return s.BrandFAQ.Satisfied() }, SectionFAQs, apierrors.ErrBrandFAQRequired},
	{func(s *State) bool { return s.ProductFAQ.Satisfied() }, SectionFAQs, apierrors.ErrProductFAQRequired},
	{func(s *State) bool { return s.SalesGuide.Satisfied() }, SectionFAQs, apierrors.ErrSalesGuideRequired},
	{func(s *State) bool { return s.LeadQualification.Satisfied() }, SectionFAQs, apierrors.ErrLeadQualRequired},
}

// ValidateRequired - строгая проверка перед отправкой. Возвращает индекс
// секции, которую нужно раскрыть, и ошибку первого незаполненного поля.
// При успехе возвращает (-1, nil).
func (s *State) ValidateRequired() (int, error) {
	for _, check := range requiredChecks {
		if !check.satisfied(s) {
			return check.section, check.err
		}
	}
	return -1, nil
}

// Scalars возвращает все скалярные поля в порядке исходной формы,
// под их проволочными именами.
func (s *State) Scalars() [][2]string {
	return [][2]string{
		{"companyName", s.CompanyName},
		{"contactName", s.ContactName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"phoneE164", s.PhoneE164},
		{"phoneCountry", s.PhoneCountry},
		{"phoneNational", s.PhoneNational},
		{"website", s.Website},
		{"instagram", s.Instagram},
		{"crm", s.CRM},
		{"emailPlatform", s.EmailPlatform},
		{"links.landingPages", s.Links.LandingPages},
		{"links.calendars", s.Links.Calendars},
		{"links.webinarLinks", s.Links.WebinarLinks},
		{"links.formsSurveys", s.Links.FormsSurveys},
		{"links.otherAssets", s.Links.OtherAssets},
		{"brandVoice", s.BrandVoice.Text},
		{"salesPitch", s.SalesPitch.Text},
		{"offerInfo", s.OfferInfo.Text},
		{"brandFAQ", s.BrandFAQ.Text},
		{"productFAQ", s.ProductFAQ.Text},
		{"salesGuide", s.SalesGuide.Text},
		{"leadQualification", s.LeadQualification.Text},
		{"credentials", s.Credentials},
		{"notes", s.Notes},
		{"loomUrl", s.LoomURL},
	}
}

// FileSlots возвращает файловые слоты под их проволочными именами.
func (s *State) FileSlots() []struct {
	Name  string
	Files []File
} {
	return []struct {
		Name  string
		Files []File
	}{
		{"brandVoiceFile", s.BrandVoice.Files},
		{"salesPitchFile", s.SalesPitch.Files},
		{"offerInfoFile", s.OfferInfo.Files},
		{"brandFAQFile", s.BrandFAQ.Files},
		{"productFAQFile", s.ProductFAQ.Files},
		{"salesGuideFile", s.SalesGuide.Files},
		{"leadQualificationFile", s.LeadQualification.Files},
		{"accessDocs", s.AccessDocs},
	}
}

// Reset возвращает состояние к значениям по умолчанию.
func (s *State) Reset() {
	*s = State{}
}
