package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jask/modelhub/internal/archive"
	"github.com/jask/modelhub/internal/registry"
)

func stagedSession(t *testing.T, u *fakeUploader, r ApprovedRefresher) *UploadSession {
	t.Helper()
	s := NewUploadSession(u, r, zaptest.NewLogger(t).Sugar())
	require.NoError(t, s.Attach(ModelArchive, archive.FromBytes("model.zip", []byte("m"))))
	require.NoError(t, s.Attach(TokenizerArchive, archive.FromBytes("tokenizer.zip", []byte("t"))))
	require.Equal(t, UploadStaging, s.State())
	return s
}

func TestAttachRejectsWrongExtension(t *testing.T) {
	t.Parallel()
	s := NewUploadSession(&fakeUploader{}, nil, nil)
	require.NoError(t, s.Attach(ModelArchive, archive.FromBytes("model.zip", nil)))

	err := s.Attach(ModelArchive, archive.FromBytes("model.txt", nil))
	require.True(t, registry.IsValidation(err))
	require.Equal(t, "model.zip", s.Archive(ModelArchive).Name)
	require.Equal(t, UploadStaging, s.State())
	require.Equal(t, SeverityError, s.Notice().Severity)
	require.Equal(t, MsgZipOnly, s.Notice().Message)
}

func TestAttachExtensionIsCaseSensitive(t *testing.T) {
	t.Parallel()
	s := NewUploadSession(&fakeUploader{}, nil, nil)
	err := s.Attach(ModelArchive, archive.FromBytes("weights.ZIP", nil))
	require.True(t, registry.IsValidation(err))
	require.True(t, s.Archive(ModelArchive).IsZero())
	require.Equal(t, UploadIdle, s.State())
}

func TestDescribeNamesAttachedArchives(t *testing.T) {
	t.Parallel()
	s := NewUploadSession(&fakeUploader{}, nil, nil)
	require.Equal(t, "model=- tokenizer=-", s.Describe())
	require.NoError(t, s.Attach(TokenizerArchive, archive.FromBytes("tok.zip", nil)))
	require.Equal(t, "model=- tokenizer=tok.zip", s.Describe())
}

func TestDetachReturnsToIdle(t *testing.T) {
	t.Parallel()
	s := stagedSession(t, &fakeUploader{}, nil)
	s.Detach(ModelArchive)
	require.True(t, s.Archive(ModelArchive).IsZero())
	require.Equal(t, UploadStaging, s.State())
	s.Detach(TokenizerArchive)
	require.Equal(t, UploadIdle, s.State())
}

func TestSubmitWithoutArchivesIssuesNoCall(t *testing.T) {
	t.Parallel()
	u := &fakeUploader{}
	s := NewUploadSession(u, &countingRefresher{}, nil)
	err := s.Submit(context.Background(), "tiny", "qa")
	require.True(t, registry.IsValidation(err))
	require.Zero(t, u.calls)
	require.Equal(t, MsgBothArchives, s.Notice().Message)
	require.Equal(t, UploadIdle, s.State())
}

func TestSubmitBlankFieldsIssuesNoCall(t *testing.T) {
	t.Parallel()
	u := &fakeUploader{}
	s := stagedSession(t, u, nil)
	require.Error(t, s.Submit(context.Background(), "tiny", " "))
	require.Error(t, s.Submit(context.Background(), "", "qa"))
	require.Zero(t, u.calls)
	require.Equal(t, UploadStaging, s.State())
}

func TestSubmitSuccessClearsArchivesAndRefreshesOnce(t *testing.T) {
	t.Parallel()
	u := &fakeUploader{}
	r := &countingRefresher{}
	s := stagedSession(t, u, r)

	require.NoError(t, s.Submit(context.Background(), "tiny-bert", "classification"))
	require.Equal(t, 1, u.calls)
	require.Equal(t, "tiny-bert", u.last.ModelName)
	require.Equal(t, "model.zip", u.last.Model.Name)
	require.Equal(t, UploadSucceeded, s.State())
	require.True(t, s.Archive(ModelArchive).IsZero())
	require.True(t, s.Archive(TokenizerArchive).IsZero())
	require.Equal(t, 1, r.calls)
	require.Equal(t, Notice{Severity: SeveritySuccess, Message: MsgUploaded}, s.Notice())
}

func TestSubmitServerErrorKeepsArchives(t *testing.T) {
	t.Parallel()
	u := &fakeUploader{err: &registry.ServerError{Op: "add model", StatusCode: 409, Message: "duplicate model name"}}
	r := &countingRefresher{}
	s := stagedSession(t, u, r)

	require.Error(t, s.Submit(context.Background(), "tiny", "qa"))
	require.Equal(t, UploadFailed, s.State())
	require.Equal(t, "duplicate model name", s.Notice().Message)
	require.Equal(t, "model.zip", s.Archive(ModelArchive).Name)
	require.Equal(t, "tokenizer.zip", s.Archive(TokenizerArchive).Name)
	require.Zero(t, r.calls)

	// resubmission is allowed
	u.err = nil
	require.NoError(t, s.Submit(context.Background(), "tiny", "qa"))
	require.Equal(t, 2, u.calls)
	require.Equal(t, 1, r.calls)
}

func TestSubmitTransportErrorGenericMessage(t *testing.T) {
	t.Parallel()
	u := &fakeUploader{err: &registry.TransportError{Op: "add model", Err: errors.New("connection reset")}}
	s := stagedSession(t, u, nil)
	require.Error(t, s.Submit(context.Background(), "tiny", "qa"))
	require.Equal(t, MsgUploadError, s.Notice().Message)

	u.err = &registry.ServerError{Op: "add model", StatusCode: 500}
	require.Error(t, s.Submit(context.Background(), "tiny", "qa"))
	require.Equal(t, MsgUploadFailed, s.Notice().Message)
}

func TestPrepareBlocksWhileSubmitting(t *testing.T) {
	t.Parallel()
	s := stagedSession(t, &fakeUploader{}, nil)
	_, err := s.Prepare("tiny", "qa")
	require.NoError(t, err)
	require.Equal(t, UploadSubmitting, s.State())
	require.Equal(t, MsgUploading, s.Notice().Message)

	_, err = s.Prepare("tiny", "qa")
	require.ErrorIs(t, err, ErrUploadInFlight)
	require.Error(t, s.Attach(ModelArchive, archive.FromBytes("other.zip", nil)))
	s.Detach(ModelArchive)
	require.Equal(t, "model.zip", s.Archive(ModelArchive).Name)

	require.True(t, s.Finish(nil))
	require.False(t, s.Finish(nil))
}
