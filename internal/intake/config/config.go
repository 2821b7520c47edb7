// Управление конфигурацией сервиса из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их
// загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Предзагрузка .env файла, если он существует.
//   - Валидация обязательных переменных.
//   - Маскировка секретных значений (passwords, keys) в логах.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderDrive      = "gdrive"
	ProviderAirtable   = "airtable"
	ProviderS3         = "s3"
)

type Config struct {
	Port string `env:"PORT"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	DBPath string `env:"DB_PATH"`

	// cloudinary | gdrive | airtable | s3
	StorageProvider string `env:"STORAGE_PROVIDER"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER"`

	DriveServiceAccountEmail string `env:"GDRIVE_SERVICE_ACCOUNT_EMAIL"`
	DriveServiceAccountKey   string `env:"GDRIVE_SERVICE_ACCOUNT_PRIVATE_KEY"`
	DriveParentFolderID      string `env:"GDRIVE_PARENT_FOLDER_ID"`
	DriveImpersonateEmail    string `env:"GDRIVE_IMPERSONATE_EMAIL"`

	AirtableAPIKey      string `env:"AIRTABLE_API_KEY"`
	AirtableBaseID      string `env:"AIRTABLE_BASE_ID"`
	AirtableTableName   string `env:"AIRTABLE_TABLE_NAME"`
	AirtableEndpoint    string `env:"AIRTABLE_ENDPOINT"`
	AirtableContentBase string `env:"AIRTABLE_CONTENT_ENDPOINT"`

	AWSAccessKey  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint   string `env:"AWS_S3_ENDPOINT_URL"`
	AWSBucketName string `env:"AWS_S3_BUCKET_NAME"`

	EmailDisabled bool   `env:"EMAIL_DISABLED"`
	EmailHost     string `env:"EMAIL_HOST"`
	EmailUser     string `env:"EMAIL_HOST_USER"`
	EmailPassword string `env:"EMAIL_HOST_PASSWORD"`
	EmailPort     int    `env:"EMAIL_PORT"`
	EmailFrom     string `env:"EMAIL_FROM"`
	EmailTo       string `env:"EMAIL_NOTIFY_TO"`
	EmailWorkers  int    `env:"EMAIL_WORKERS"`

	LogRetentionDays int `env:"LOG_RETENTION_DAYS"`
}

// ReadConfig загружает конфигурацию сервиса из переменных окружения и выполняет
// валидацию. Провайдер хранилища по умолчанию - cloudinary, как в исходном
// варианте формы; недостающие учетные данные провайдера проверяются при
// создании самого провайдера, а не здесь.
func ReadConfig() *Config {
	// .env is optional, absence is not an error
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env file")
	}

	config := &Config{}

	envConfig("env", config)

	if config.Port == "" {
		config.Port = "8080"
	}

	if config.DBPath == "" {
		config.DBPath = "intake.db"
	}

	if config.StorageProvider == "" {
		config.StorageProvider = ProviderCloudinary
	}

	if config.CloudinaryFolder == "" {
		config.CloudinaryFolder = "sob-intake"
	}

	if config.WebURLRaw != "" {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.EmailWorkers <= 0 {
		config.EmailWorkers = 2
	}

	if config.LogRetentionDays <= 0 {
		config.LogRetentionDays = 90
	}

	return config
}

// Присваивает полям в переданной структуре значения переменных. Название
// переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		lower := strings.ToLower(fName)
		if strings.Contains(lower, "pass") || strings.Contains(lower, "secret") || strings.Contains(lower, "key") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
