package attachment

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	proposal "anoa.com/innoliber/internal/modules/proposal/service"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/logger"
	"anoa.com/innoliber/pkg/storage"
	"go.uber.org/zap"
)

const MaxFileSize = 20 << 20

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".txt": {}, ".md": {}, ".csv": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".zip": {},
}

type AttachmentService interface {
	AttachToProposal(ctx context.Context, ownerID, proposalID uint, file *multipart.FileHeader, version *int) (*dto.UpdateProposalResponse, error)
}

type attachmentService struct {
	proposalService proposal.Service
	fileStorage     storage.FileStorage
	folder          string
}

// NewAttachmentService accepts a nil storage; uploads then answer 503.
func NewAttachmentService(proposalService proposal.Service, fileStorage storage.FileStorage, folder string) AttachmentService {
	return &attachmentService{
		proposalService: proposalService,
		fileStorage:     fileStorage,
		folder:          folder,
	}
}

func (s *attachmentService) AttachToProposal(ctx context.Context, ownerID, proposalID uint, file *multipart.FileHeader, version *int) (*dto.UpdateProposalResponse, error) {
	if s.fileStorage == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", apperror.ErrServiceUnavailable)
	}
	if err := validateFile(file); err != nil {
		return nil, err
	}

	// check ownership before anything reaches storage
	if _, err := s.proposalService.GetProposal(ctx, ownerID, proposalID); err != nil {
		return nil, err
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	folder := fmt.Sprintf("%s/%d", s.folder, proposalID)
	url, err := s.fileStorage.Upload(ctx, f, folder, file.Filename)
	if err != nil {
		return nil, err
	}

	res, err := s.proposalService.AttachFile(ctx, ownerID, proposalID, entity.FileDescriptor{
		Name: filepath.Base(file.Filename),
		URL:  url,
	}, version)
	if err != nil {
		// the file is orphaned if the proposal write lost
		if delErr := s.fileStorage.Delete(ctx, url); delErr != nil {
			logger.FromContext(ctx).Warn("failed to remove orphaned upload",
				zap.String("url", url),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	return res, nil
}

func validateFile(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: file is required", apperror.ErrInvalidInput)
	}
	if file.Size > MaxFileSize {
		return fmt.Errorf("%w: file exceeds %d MB", apperror.ErrInvalidInput, MaxFileSize>>20)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: file type %q is not allowed", apperror.ErrInvalidInput, ext)
	}
	return nil
}
