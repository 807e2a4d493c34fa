package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/btube/btube-backend-go/internal/ipfs"
)

// StoredMedia holds the content addresses produced for one upload.
type StoredMedia struct {
	VideoCID   string `json:"video_cid"`
	PreviewCID string `json:"preview_cid"`
}

// MediaService stores uploaded video files in the content-addressed store and
// generates a preview clip covering the leading percentage of the video's
// duration.
type MediaService struct {
	store             *ipfs.Client
	previewPercentage int
	tempDir           string
}

// NewMediaService creates a MediaService. previewPercentage is clamped to
// [1, 100]; tempDir empty means the system default.
func NewMediaService(store *ipfs.Client, previewPercentage int, tempDir string) *MediaService {
	if previewPercentage < 1 {
		previewPercentage = 1
	}
	if previewPercentage > 100 {
		previewPercentage = 100
	}

	return &MediaService{
		store:             store,
		previewPercentage: previewPercentage,
		tempDir:           tempDir,
	}
}

// StoreVideo adds the video at srcPath to the content store together with a
// freshly cut preview clip, returning both content addresses. The preview file
// is removed after upload.
func (s *MediaService) StoreVideo(ctx context.Context, fileName, srcPath string) (*StoredMedia, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	videoCID, err := s.store.Add(ctx, fileName, src)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	previewPath, err := s.generatePreview(srcPath)
	if err != nil {
		return nil, fmt.Errorf("generate preview: %w", err)
	}
	defer os.Remove(previewPath)

	preview, err := os.Open(previewPath)
	if err != nil {
		return nil, fmt.Errorf("open preview: %w", err)
	}
	defer preview.Close()

	previewCID, err := s.store.Add(ctx, filepath.Base(previewPath), preview)
	if err != nil {
		return nil, fmt.Errorf("store preview: %w", err)
	}

	return &StoredMedia{VideoCID: videoCID, PreviewCID: previewCID}, nil
}

// generatePreview cuts the leading fraction of the video into a temporary mp4
// and returns its path. The caller owns the file.
func (s *MediaService) generatePreview(srcPath string) (string, error) {
	duration, err := probeDuration(srcPath)
	if err != nil {
		return "", err
	}

	previewSeconds := duration * float64(s.previewPercentage) / 100

	tmp, err := os.CreateTemp(s.tempDir, "preview-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create preview file: %w", err)
	}
	tmp.Close()

	err = ffmpeg.Input(srcPath).
		Output(tmp.Name(), ffmpeg.KwArgs{
			"t": strconv.FormatFloat(previewSeconds, 'f', 3, 64),
			"c": "copy",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cut preview: %w", err)
	}

	return tmp.Name(), nil
}

func probeDuration(srcPath string) (float64, error) {
	probed, err := ffmpeg.Probe(srcPath)
	if err != nil {
		return 0, fmt.Errorf("probe video: %w", err)
	}

	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(probed), &info); err != nil {
		return 0, fmt.Errorf("decode probe output: %w", err)
	}

	duration, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", info.Format.Duration, err)
	}

	return duration, nil
}
