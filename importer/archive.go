package importer

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
)

// ObjectUploader writes a source file to object storage.
type ObjectUploader func(ctx context.Context, objectName string, data []byte, contentType string) error

// ParseUpload parses an uploaded file and, when archiving is on, stores the
// original under <business>/imports/<kind>/ first. The returned object key
// is meant to be sent back on the first stage batch.
func (s *Service) ParseUpload(ctx context.Context, businessId string, kind models.EntityKind, fileName string, data []byte) (*ParseResult, error) {
	result, err := ParseFile(fileName, data)
	if err != nil {
		return nil, err
	}
	if !s.ArchiveUploads {
		return result, nil
	}

	upload := s.Upload
	if upload == nil {
		upload = utils.UploadBytesToGCS
	}
	key := utils.ImportObjectKey(businessId, string(kind), fileName)
	if err := upload(ctx, key, data, contentTypeFor(fileName)); err != nil {
		return nil, fmt.Errorf("archive %s: %w", fileName, err)
	}
	result.SourceObjectKey = key
	return result, nil
}
