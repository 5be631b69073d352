// Package upload puts CSV files into a Google Drive folder.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const csvMime = "text/csv"

// Files is the part of the Drive API the uploader needs.
type Files interface {
	Find(ctx context.Context, folderID, name string) (string, error)
	Create(ctx context.Context, folderID, name string, content io.Reader) (string, error)
	Update(ctx context.Context, fileID string, content io.Reader) error
}

// Uploader replaces files of the same name in the folder, so uploading
// twice leaves one copy.
type Uploader struct {
	files    Files
	folderID string
	log      *zap.Logger
}

func New(files Files, folderID string, log *zap.Logger) *Uploader {
	return &Uploader{files: files, folderID: folderID, log: log}
}

// Upload sends the file at path and returns its Drive id.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := filepath.Base(path)
	id, err := u.files.Find(ctx, u.folderID, name)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", name, err)
	}

	if id != "" {
		if err := u.files.Update(ctx, id, f); err != nil {
			return "", fmt.Errorf("update %s: %w", name, err)
		}
		u.log.Info("updated file", zap.String("name", name), zap.String("id", id))
		return id, nil
	}

	id, err = u.files.Create(ctx, u.folderID, name, f)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	u.log.Info("created file", zap.String("name", name), zap.String("id", id))
	return id, nil
}

// DriveFiles implements Files with the Drive v3 API.
type DriveFiles struct {
	svc *drive.Service
}

func NewDriveFiles(ctx context.Context, credentialsFile string) (*DriveFiles, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return &DriveFiles{svc: svc}, nil
}

func (d *DriveFiles) Find(ctx context.Context, folderID, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), escapeQuery(folderID))

	list, err := d.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (d *DriveFiles) Create(ctx context.Context, folderID, name string, content io.Reader) (string, error) {
	file := &drive.File{
		Name:     name,
		Parents:  []string{folderID},
		MimeType: csvMime,
	}

	created, err := d.svc.Files.Create(file).
		Media(content).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (d *DriveFiles) Update(ctx context.Context, fileID string, content io.Reader) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{}).
		Media(content).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
