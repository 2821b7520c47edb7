// DAO (Data Access Object) - журнал принятых заявок в локальной базе.
// Запись создается на каждую попытку отправки и фиксирует исход: идентификатор
// созданной записи во внешнем хранилище либо текст ошибки. Журнал служит для
// аудита и восстановления после сбоев внешнего хранилища.
//
// Основные возможности:
//   - Сохранение результата каждой отправки формы.
//   - Подсчет загруженных и прикрепленных файлов.
//   - Очистка записей старше срока хранения.
package dao

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	StatusStored = "stored"
	StatusFailed = "failed"
)

// GenID генерирует уникальный идентификатор в формате UUID.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

type Submission struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email"`

	Provider      string `json:"provider"`
	FileCount     int    `json:"file_count"`
	AttachedCount int    `json:"attached_count"`

	// External record id when the submission reached the record store
	RecordID string `json:"record_id"`

	Status string `json:"status" gorm:"index"`
	Error  string `json:"error"`
}

func (Submission) TableName() string { return "submissions" }

// Migrate приводит схему локальной базы к актуальному виду.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Submission{})
}

// PruneSubmissions удаляет записи журнала старше cutoff. Возвращает количество
// удаленных строк.
func PruneSubmissions(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Where("created_at < ?", cutoff).Delete(&Submission{})
	return res.RowsAffected, res.Error
}
