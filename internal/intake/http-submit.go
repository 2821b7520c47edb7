package intake

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/dao"
	"github.com/sobdigital/sob-intake/internal/intake/notifications"
)

// Content API attachments are capped at 5 MiB per file
const maxAttachSize = 5 * 1024 * 1024

// Record store column holding file attachments
const filesFieldLabel = "Files"

var fieldNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var (
	submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sob_intake",
		Name:      "submissions_total",
		Help:      "Form submissions by outcome",
	}, []string{"status"})

	filesUploadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sob_intake",
		Name:      "files_uploaded_total",
		Help:      "File uploads by outcome",
	}, []string{"status"})

	filesAttachedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sob_intake",
		Name:      "files_attached_total",
		Help:      "Files attached through the content API fallback",
	})
)

func init() {
	prometheus.MustRegister(submissionsTotal, filesUploadedTotal, filesAttachedTotal)
}

func (s *Services) AddSubmitServices(g *echo.Group) {
	g.POST("submit/", s.submitIntake)
}

// IntakePayload - скалярные поля формы в проволочных именах. Формат
// непустых значений проверяется мягко: предупреждение в лог, без отказа.
type IntakePayload struct {
	CompanyName   string `json:"companyName" form:"companyName"`
	ContactName   string `json:"contactName" form:"contactName"`
	Email         string `json:"email" form:"email" validate:"omitempty,intakeEmail"`
	Phone         string `json:"phone" form:"phone" validate:"omitempty,intakePhone"`
	PhoneE164     string `json:"phoneE164" form:"phoneE164"`
	PhoneCountry  string `json:"phoneCountry" form:"phoneCountry"`
	PhoneNational string `json:"phoneNational" form:"phoneNational"`
	Website       string `json:"website" form:"website" validate:"omitempty,webURL"`
	Instagram     string `json:"instagram" form:"instagram" validate:"omitempty,instagramHandle"`

	CRM           string `json:"crm" form:"crm"`
	EmailPlatform string `json:"emailPlatform" form:"emailPlatform"`

	LandingPages string `json:"-" form:"links.landingPages"`
	Calendars    string `json:"-" form:"links.calendars"`
	WebinarLinks string `json:"-" form:"links.webinarLinks"`
	FormsSurveys string `json:"-" form:"links.formsSurveys"`
	OtherAssets  string `json:"-" form:"links.otherAssets"`

	// JSON-вариант запроса передает ссылки вложенным объектом;
	// multipart-вариант - плоскими полями links.*.
	Links struct {
		LandingPages string `json:"landingPages"`
		Calendars    string `json:"calendars"`
		WebinarLinks string `json:"webinarLinks"`
		FormsSurveys string `json:"formsSurveys"`
		OtherAssets  string `json:"otherAssets"`
	} `json:"links" form:"-"`

	BrandVoice        string `json:"brandVoice" form:"brandVoice"`
	SalesPitch        string `json:"salesPitch" form:"salesPitch"`
	OfferInfo         string `json:"offerInfo" form:"offerInfo"`
	BrandFAQ          string `json:"brandFAQ" form:"brandFAQ"`
	ProductFAQ        string `json:"productFAQ" form:"productFAQ"`
	SalesGuide        string `json:"salesGuide" form:"salesGuide"`
	LeadQualification string `json:"leadQualification" form:"leadQualification"`

	Credentials string `json:"credentials" form:"credentials"`
	Notes       string `json:"notes" form:"notes"`
	LoomURL     string `json:"loomUrl" form:"loomUrl"`
}

// UploadedFileSummary - итог обработки одного файла заявки.
type UploadedFileSummary struct {
	Field        string `json:"field"`
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName"`
	URL          string `json:"url,omitempty"`
	Token        string `json:"-"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
	Uploaded     bool   `json:"uploaded"`

	data []byte
}

// storedFileName собирает имя файла в хранилище: очищенное имя поля плюс
// расширение исходного файла. Исходное имя пользователя в хранилище не попадает.
func storedFileName(field, originalName string) string {
	sanitizedField := fieldNameSanitizer.ReplaceAllString(field, "")
	return sanitizedField + strings.ToLower(filepath.Ext(originalName))
}

// mergeLinks переносит вложенные ссылки JSON-варианта в плоские поля.
// Плоское значение, пришедшее из multipart, имеет приоритет.
func (p *IntakePayload) mergeLinks() {
	if p.LandingPages == "" {
		p.LandingPages = p.Links.LandingPages
	}
	if p.Calendars == "" {
		p.Calendars = p.Links.Calendars
	}
	if p.WebinarLinks == "" {
		p.WebinarLinks = p.Links.WebinarLinks
	}
	if p.FormsSurveys == "" {
		p.FormsSurveys = p.Links.FormsSurveys
	}
	if p.OtherAssets == "" {
		p.OtherAssets = p.Links.OtherAssets
	}
}

// reconcilePhone выбирает каноническое значение телефона: E.164 от виджета,
// иначе код страны плюс цифры национального номера, иначе сырое значение.
func reconcilePhone(p *IntakePayload) string {
	if p.PhoneE164 != "" {
		return p.PhoneE164
	}
	if p.PhoneCountry != "" && p.PhoneNational != "" {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, p.PhoneNational)
		if digits != "" {
			return "+" + strings.TrimPrefix(p.PhoneCountry, "+") + digits
		}
	}
	return p.Phone
}

// submitIntake принимает заявку онбординга целиком: скалярные поля, файлы,
// создание записи во внешнем хранилище и догрузку непрошедших файлов через
// content API. Сбой загрузки отдельного файла не валит заявку; сбой создания
// записи - валит.
func (s *Services) submitIntake(c echo.Context) error {
	var payload IntakePayload
	var files []*UploadedFileSummary

	ctx := c.Request().Context()

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return EError(c, err)
		}
		defer form.RemoveAll()

		if err := c.Bind(&payload); err != nil {
			return EError(c, err)
		}

		files = s.uploadFiles(c, form)
	} else {
		if err := c.Bind(&payload); err != nil {
			return EError(c, err)
		}
	}

	if err := c.Validate(&payload); err != nil {
		// format problems are reported by the sending side before submit;
		// here they only get logged
		slog.Warn("Payload format warnings", "err", err)
	}

	payload.mergeLinks()

	fields := buildRecordFields(&payload, files)

	recordID, err := s.store.CreateRecord(ctx, fields)
	if err != nil {
		slog.Error("Create record", "err", err)
		submissionsTotal.WithLabelValues("failed").Inc()
		s.logSubmission(&payload, files, "", 0, err)
		return EErrorDefined(c, apierrors.ErrRecordCreateFailed)
	}

	attached := s.attachLeftovers(c, recordID, files)

	submissionsTotal.WithLabelValues("stored").Inc()
	s.logSubmission(&payload, files, recordID, attached, nil)

	s.emailService.SubmissionReceived(notifications.SubmissionInfo{
		CompanyName:   payload.CompanyName,
		ContactName:   payload.ContactName,
		ContactEmail:  payload.Email,
		RecordID:      recordID,
		FileCount:     len(files),
		AttachedCount: attached,
		Provider:      cfg.StorageProvider,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":     true,
		"record": recordID,
		"files":  files,
	})
}

// uploadFiles загружает все файлы формы в блоб-хранилище. Сбой одного файла
// не прерывает обработку остальных.
func (s *Services) uploadFiles(c echo.Context, form *multipart.Form) []*UploadedFileSummary {
	var files []*UploadedFileSummary

	for field, headers := range form.File {
		for _, header := range headers {
			// unfilled file inputs arrive as zero-size parts
			if header.Size == 0 {
				continue
			}
			summary := &UploadedFileSummary{
				Field:        field,
				OriginalName: header.Filename,
				StoredName:   storedFileName(field, header.Filename),
				Size:         header.Size,
				ContentType:  header.Header.Get("Content-Type"),
			}
			files = append(files, summary)

			src, err := header.Open()
			if err != nil {
				slog.Error("Open form file", "field", field, "err", err)
				filesUploadedTotal.WithLabelValues("failed").Inc()
				continue
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				slog.Error("Read form file", "field", field, "err", err)
				filesUploadedTotal.WithLabelValues("failed").Inc()
				continue
			}
			summary.data = data

			res, err := s.storage.Upload(c.Request().Context(), data, summary.StoredName, summary.ContentType)
			if err != nil {
				slog.Error("Upload form file",
					"field", field,
					"name", summary.StoredName,
					"provider", cfg.StorageProvider,
					"err", err,
				)
				filesUploadedTotal.WithLabelValues("failed").Inc()
				continue
			}

			summary.URL = res.URL
			summary.Token = res.Token
			summary.Uploaded = true
			filesUploadedTotal.WithLabelValues("ok").Inc()
		}
	}
	return files
}

// attachLeftovers догружает через content API файлы, не попавшие в хранилище
// при первичной загрузке. Все ошибки глотаются: запись уже создана, заявка
// считается принятой.
func (s *Services) attachLeftovers(c echo.Context, recordID string, files []*UploadedFileSummary) int {
	var leftovers []*UploadedFileSummary
	for _, f := range files {
		if f.Uploaded || len(f.data) == 0 || int64(len(f.data)) > maxAttachSize {
			continue
		}
		leftovers = append(leftovers, f)
	}
	if len(leftovers) == 0 {
		return 0
	}

	ctx := c.Request().Context()

	fieldID, err := s.store.ResolveFieldID(ctx, s.store.Table(), filesFieldLabel)
	if err != nil {
		slog.Warn("Resolve attachments field", "err", err)
		return 0
	}

	attached := 0
	for _, f := range leftovers {
		if err := s.store.AttachContent(ctx, recordID, fieldID, f.data, f.ContentType, f.StoredName); err != nil {
			slog.Warn("Attach file content", "name", f.StoredName, "err", err)
			continue
		}
		f.Uploaded = true
		attached++
		filesAttachedTotal.Inc()
	}
	return attached
}

// logSubmission пишет итог отправки в локальный журнал. Сбой журнала только
// логируется.
func (s *Services) logSubmission(p *IntakePayload, files []*UploadedFileSummary, recordID string, attached int, submitErr error) {
	sub := dao.Submission{
		Id:            dao.GenID(),
		CreatedAt:     time.Now(),
		CompanyName:   p.CompanyName,
		ContactEmail:  p.Email,
		Provider:      cfg.StorageProvider,
		FileCount:     len(files),
		AttachedCount: attached,
		RecordID:      recordID,
		Status:        dao.StatusStored,
	}
	if submitErr != nil {
		sub.Status = dao.StatusFailed
		sub.Error = submitErr.Error()
	}
	if err := s.db.Create(&sub).Error; err != nil {
		slog.Error("Write submission log", "err", err)
	}
}

// buildRecordFields собирает поля записи внешнего хранилища. Пустые значения
// не отправляются; файлы с URL или токеном попадают в поле вложений.
func buildRecordFields(p *IntakePayload, files []*UploadedFileSummary) map[string]interface{} {
	fields := map[string]interface{}{}

	put := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fields[label] = value
		}
	}

	put("Company Name", p.CompanyName)
	put("Contact Name", p.ContactName)
	put("Email", p.Email)
	put("Phone", reconcilePhone(p))
	put("Website", p.Website)
	put("Instagram", strings.TrimPrefix(p.Instagram, "@"))
	put("CRM", p.CRM)
	put("Email Platform", p.EmailPlatform)
	put("Landing Pages", p.LandingPages)
	put("Calendars", p.Calendars)
	put("Webinar Links", p.WebinarLinks)
	put("Forms/Surveys", p.FormsSurveys)
	put("Other Assets", p.OtherAssets)
	put("Brand Voice", p.BrandVoice)
	put("Sales Pitch", p.SalesPitch)
	put("Offer Info", p.OfferInfo)
	put("Brand FAQ", p.BrandFAQ)
	put("Product FAQ", p.ProductFAQ)
	put("Sales Guide", p.SalesGuide)
	put("Lead Qualification", p.LeadQualification)
	put("Credentials", p.Credentials)
	put("Notes", p.Notes)
	put("Loom URL", p.LoomURL)

	var attachments []map[string]interface{}
	for _, f := range files {
		switch {
		case f.URL != "":
			attachments = append(attachments, map[string]interface{}{
				"url":      f.URL,
				"filename": f.StoredName,
			})
		case f.Token != "":
			attachments = append(attachments, map[string]interface{}{
				"uploadToken": f.Token,
				"filename":    f.StoredName,
			})
		}
	}
	if len(attachments) > 0 {
		fields[filesFieldLabel] = attachments
	}

	return fields
}
