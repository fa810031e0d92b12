package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jask/modelhub/internal/archive"
	"github.com/jask/modelhub/internal/registry"
)

// User-visible upload messages.
const (
	MsgZipOnly        = "Please upload ZIP files only"
	MsgBothArchives   = "Please upload both model and tokenizer files"
	MsgUploading      = "Uploading model..."
	MsgUploaded       = "Model uploaded successfully! Voting in progress."
	MsgUploadFailed   = "Upload failed"
	MsgUploadError    = "Error uploading model"
	MsgUploadInFlight = "An upload is already in progress"
)

// ErrUploadInFlight is returned when the session is already submitting.
var ErrUploadInFlight = errors.New("upload in progress")

// UploadState is the lifecycle phase of an UploadSession.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadStaging
	UploadSubmitting
	UploadSucceeded
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadStaging:
		return "staging"
	case UploadSubmitting:
		return "submitting"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ArchiveKind selects which archive slot a file belongs to.
type ArchiveKind int

const (
	ModelArchive ArchiveKind = iota
	TokenizerArchive
)

func (k ArchiveKind) String() string {
	if k == TokenizerArchive {
		return "tokenizer"
	}
	return "model"
}

// Uploader sends one upload request.
type Uploader interface {
	AddModel(ctx context.Context, r registry.UploadRequest) error
}

// ApprovedRefresher re-reads the approved collection.
type ApprovedRefresher interface {
	RefreshApproved(ctx context.Context) error
}

// UploadSession owns one model submission: staging the two archives,
// validating, sending, and reporting the outcome.
//
// Succeeded behaves like idle for the next action; failed behaves like
// staging and keeps whatever archives are attached.
type UploadSession struct {
	uploader  Uploader
	refresher ApprovedRefresher
	log       *zap.SugaredLogger

	state     UploadState
	archives  [2]archive.File
	notice    Notice
	lastModel string
}

func NewUploadSession(u Uploader, r ApprovedRefresher, log *zap.SugaredLogger) *UploadSession {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UploadSession{uploader: u, refresher: r, log: log}
}

func (s *UploadSession) State() UploadState { return s.state }

func (s *UploadSession) Notice() Notice { return s.notice }

// Archive returns the attached file for kind (zero when none).
func (s *UploadSession) Archive(kind ArchiveKind) archive.File { return s.archives[kind] }

// Attach stages f as the kind archive. Files without the archive extension are
// rejected with a ValidationError and nothing changes.
func (s *UploadSession) Attach(kind ArchiveKind, f archive.File) error {
	if s.state == UploadSubmitting {
		s.notice = failure(MsgUploadInFlight)
		return registry.Invalid(kind.String(), MsgUploadInFlight)
	}
	if err := f.Validate(); err != nil {
		s.notice = failure(MsgZipOnly)
		return registry.Invalid(kind.String(), MsgZipOnly)
	}
	s.archives[kind] = f
	s.state = UploadStaging
	s.notice = Notice{}
	return nil
}

// Detach clears the kind archive. It is ignored while submitting.
func (s *UploadSession) Detach(kind ArchiveKind) {
	if s.state == UploadSubmitting {
		return
	}
	s.archives[kind] = archive.File{}
	s.state = s.restingState()
}

func (s *UploadSession) restingState() UploadState {
	if s.archives[ModelArchive].IsZero() && s.archives[TokenizerArchive].IsZero() {
		return UploadIdle
	}
	return UploadStaging
}

// Prepare validates the form and, on success, moves to submitting and returns
// the request to send. On failure nothing but the notice changes.
func (s *UploadSession) Prepare(modelName, task string) (registry.UploadRequest, error) {
	if s.state == UploadSubmitting {
		s.notice = failure(MsgUploadInFlight)
		return registry.UploadRequest{}, ErrUploadInFlight
	}
	req := registry.UploadRequest{
		ModelName: modelName,
		Task:      task,
		Model:     s.archives[ModelArchive],
		Tokenizer: s.archives[TokenizerArchive],
	}
	if err := req.Validate(); err != nil {
		s.notice = failure(registry.UserMessage(err, MsgBothArchives))
		return registry.UploadRequest{}, err
	}
	s.state = UploadSubmitting
	s.lastModel = req.ModelName
	s.notice = info(MsgUploading)
	s.log.Infow("upload prepared", "model_name", req.ModelName, "task", req.Task, "archives", s.Describe())
	return req, nil
}

// Finish records the response of the request returned by Prepare. It reports
// whether the approved collection should be refreshed.
func (s *UploadSession) Finish(err error) bool {
	if s.state != UploadSubmitting {
		return false
	}
	if err == nil {
		s.archives = [2]archive.File{}
		s.state = UploadSucceeded
		s.notice = success(MsgUploaded)
		s.log.Infow("model uploaded", "model_name", s.lastModel)
		return true
	}
	s.state = UploadFailed
	var serr *registry.ServerError
	if errors.As(err, &serr) {
		s.notice = failure(registry.UserMessage(err, MsgUploadFailed))
		s.log.Warnw("upload rejected", "model_name", s.lastModel, "status", serr.StatusCode, "error", serr.Message)
		return false
	}
	s.notice = failure(registry.UserMessage(err, MsgUploadError))
	s.log.Errorw("upload transport failure", "model_name", s.lastModel, "error", err)
	return false
}

// Submit runs Prepare, the request, Finish and the follow-up refresh in the
// caller's goroutine.
func (s *UploadSession) Submit(ctx context.Context, modelName, task string) error {
	req, err := s.Prepare(modelName, task)
	if err != nil {
		return err
	}
	sendErr := s.uploader.AddModel(ctx, req)
	if !s.Finish(sendErr) {
		return sendErr
	}
	if s.refresher != nil {
		if err := s.refresher.RefreshApproved(ctx); err != nil {
			s.log.Warnw("refresh after upload failed", "error", err)
		}
	}
	return nil
}

// Describe renders the attached archive names for status lines.
func (s *UploadSession) Describe() string {
	name := func(f archive.File) string {
		if f.IsZero() {
			return "-"
		}
		return f.Name
	}
	return fmt.Sprintf("model=%s tokenizer=%s", name(s.archives[ModelArchive]), name(s.archives[TokenizerArchive]))
}
