package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"

	"google.golang.org/api/googleapi"

	"reelup/internal/history"
	"reelup/internal/logging"
	"reelup/internal/services"
	"reelup/internal/testsupport"
	"reelup/internal/upload"
)

type stubUploader struct {
	calls    atomic.Int32
	lastMeta atomic.Pointer[upload.Metadata]
	outcome  func(path string) upload.Outcome
}

func (s *stubUploader) UploadResumable(_ context.Context, path string, meta upload.Metadata, collectionID string) upload.Outcome {
	s.calls.Add(1)
	s.lastMeta.Store(&meta)
	if s.outcome != nil {
		return s.outcome(path)
	}
	return upload.Outcome{SourcePath: path, ResourceID: "vid", CollectionID: collectionID}
}

func newTestRunner(t *testing.T, uploader resumableUploader, opts ...testsupport.ConfigOption) (*batchRunner, *history.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	return &batchRunner{
		cfg:      cfg,
		uploader: uploader,
		store:    store,
		logger:   logging.NewNop(),
		parallel: 2,
	}, store
}

func TestBatchRunnerRejectsLockedSource(t *testing.T) {
	uploader := &stubUploader{}
	runner, _ := newTestRunner(t, uploader)
	path := filepath.Join(testsupport.BaseDir(runner.cfg), "clip.mp4")
	testsupport.WriteFile(t, path, 64)

	lock, err := history.AcquireSourceLock(runner.cfg.LockDir(), path)
	if err != nil {
		t.Fatalf("AcquireSourceLock: %v", err)
	}
	defer lock.Release()

	results := runner.run(context.Background(), []uploadRequest{{path: path, meta: upload.Metadata{Title: "Clip"}}})
	if !errors.Is(results[0].Err, history.ErrSourceLocked) {
		t.Fatalf("expected locked source, got %v", results[0].Err)
	}
	if uploader.calls.Load() != 0 {
		t.Fatal("uploader must not run for a locked source")
	}
	if line := newUploadLine(results[0]); line.Status != "rejected" {
		t.Fatalf("status = %q, want rejected", line.Status)
	}
}

func TestBatchRunnerRecordsAttachFailure(t *testing.T) {
	uploader := &stubUploader{outcome: func(path string) upload.Outcome {
		return upload.Outcome{
			SourcePath:   path,
			ResourceID:   "vid",
			CollectionID: "PL",
			Err:          &upload.Error{Kind: upload.KindAttachmentFailed, Err: errors.New("playlist not found")},
		}
	}}
	runner, store := newTestRunner(t, uploader)
	path := filepath.Join(testsupport.BaseDir(runner.cfg), "clip.mp4")
	testsupport.WriteFile(t, path, 64)

	results := runner.run(context.Background(), []uploadRequest{{path: path, playlist: "PL"}})
	record, err := store.GetByID(context.Background(), results[0].RecordID)
	if err != nil || record == nil {
		t.Fatalf("GetByID: %v %v", record, err)
	}
	if record.Status != history.StatusAttachFailed || record.ResourceID != "vid" {
		t.Fatalf("unexpected record %+v", record)
	}
	failed, firstErr := summarizeFailures(results)
	if failed != 1 || !errors.Is(firstErr, upload.ErrAttachmentFailed) {
		t.Fatalf("summarizeFailures = %d, %v", failed, firstErr)
	}
}

func TestOutcomeErrorMapsUnauthorizedStatus(t *testing.T) {
	outcome := upload.Outcome{Err: &upload.Error{
		Kind:       upload.KindFatalClient,
		StatusCode: http.StatusUnauthorized,
		Err:        &googleapi.Error{Code: http.StatusUnauthorized},
	}}
	if err := outcomeError(outcome); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if outcomeError(upload.Outcome{}) != nil {
		t.Fatal("successful outcome must not produce an error")
	}
}

func TestBatchRunnerResolvesLanguage(t *testing.T) {
	probeJSON := `{"streams":[{"codec_type":"video","codec_name":"h264"},{"codec_type":"audio","codec_name":"aac","tags":{"language":"ger"}}],"format":{"duration":"12.0"}}`
	cases := []struct {
		name     string
		validate bool
		explicit string
		want     string
	}{
		{name: "audio stream tag", validate: true, want: "de"},
		{name: "explicit wins over tag", validate: true, explicit: "en", want: "en"},
		{name: "config default without probe", validate: false, want: "fr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uploader := &stubUploader{}
			runner, _ := newTestRunner(t, uploader, testsupport.WithFakeFFprobe(probeJSON))
			runner.cfg.Media.Validate = tc.validate
			runner.cfg.Upload.DefaultLanguage = "fr"
			path := filepath.Join(testsupport.BaseDir(runner.cfg), "clip.mp4")
			testsupport.WriteFile(t, path, 64)

			results := runner.run(context.Background(), []uploadRequest{{path: path, meta: upload.Metadata{Title: "Clip", Language: tc.explicit}}})
			if results[0].Err != nil {
				t.Fatalf("run: %v", results[0].Err)
			}
			if got := uploader.lastMeta.Load().Language; got != tc.want {
				t.Fatalf("language = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBatchRunnerRejectsSourceWithoutVideo(t *testing.T) {
	uploader := &stubUploader{}
	audioOnly := `{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"5.0"}}`
	runner, store := newTestRunner(t, uploader, testsupport.WithFakeFFprobe(audioOnly))
	path := filepath.Join(testsupport.BaseDir(runner.cfg), "song.m4a")
	testsupport.WriteFile(t, path, 64)

	results := runner.run(context.Background(), []uploadRequest{{path: path, meta: upload.Metadata{Title: "Song"}}})
	if !errors.Is(results[0].Err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", results[0].Err)
	}
	if uploader.calls.Load() != 0 {
		t.Fatal("uploader must not run for a rejected source")
	}
	records, err := store.List(context.Background(), history.ListOptions{})
	if err != nil || len(records) != 0 {
		t.Fatalf("rejected source should not be recorded: %v %v", records, err)
	}
}
