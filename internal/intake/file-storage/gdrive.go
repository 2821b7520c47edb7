package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/sobdigital/sob-intake/internal/intake/apierrors"
	"github.com/sobdigital/sob-intake/internal/intake/config"
)

// DriveStorage загружает файлы в папку Google Drive от имени сервисного
// аккаунта. Сервисные аккаунты не имеют личного хранилища, поэтому целевая
// папка должна лежать на общем диске либо аккаунт должен имперсонировать
// пользователя через domain-wide delegation.
type DriveStorage struct {
	service     *drive.Service
	folderID    string
	impersonate bool
}

func NewDriveStorage(cfg *config.Config) (*DriveStorage, error) {
	required := map[string]string{
		"GDRIVE_SERVICE_ACCOUNT_EMAIL":       cfg.DriveServiceAccountEmail,
		"GDRIVE_SERVICE_ACCOUNT_PRIVATE_KEY": cfg.DriveServiceAccountKey,
	}
	for name, value := range required {
		if value == "" {
			return nil, apierrors.ErrDriveConfigMissing.AddErrorMeta(name)
		}
	}
	if cfg.DriveParentFolderID == "" {
		return nil, apierrors.ErrDriveFolderRequired
	}

	// Keys arrive from env with escaped newlines
	privateKey := strings.ReplaceAll(cfg.DriveServiceAccountKey, `\n`, "\n")

	jwtConfig := &jwt.Config{
		Email:      cfg.DriveServiceAccountEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{drive.DriveScope},
		TokenURL:   google.JWTTokenURL,
	}
	if cfg.DriveImpersonateEmail != "" {
		jwtConfig.Subject = cfg.DriveImpersonateEmail
	}

	ctx := context.Background()
	service, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, err
	}

	return &DriveStorage{
		service:     service,
		folderID:    cfg.DriveParentFolderID,
		impersonate: cfg.DriveImpersonateEmail != "",
	}, nil
}

// checkFolder проверяет, что целевая папка доступна и, без имперсонации,
// что она лежит на общем диске. Проверка выполняется на каждую загрузку:
// доступ могли отозвать после старта сервиса.
func (d *DriveStorage) checkFolder(ctx context.Context) error {
	folder, err := d.service.Files.Get(d.folderID).
		Fields("id", "name", "driveId").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive: folder %s is not accessible: %w", d.folderID, err)
	}
	if folder.DriveId == "" && !d.impersonate {
		return apierrors.ErrDriveFolderNotShared
	}
	return nil
}

func (d *DriveStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (*UploadResult, error) {
	if err := d.checkFolder(ctx); err != nil {
		return nil, err
	}

	meta := &drive.File{
		Name:    collisionFreeName(filename),
		Parents: []string{d.folderID},
	}
	created, err := d.service.Files.Create(meta).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	// Anyone-with-the-link read access, so the stored URL resolves without auth
	_, err = d.service.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL: fmt.Sprintf("https://drive.google.com/uc?id=%s&export=download", created.Id),
	}, nil
}
