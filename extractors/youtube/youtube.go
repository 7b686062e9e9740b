// Package youtube fetches YouTube media natively with github.com/kkdai/youtube.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte"
	"github.com/alanbriolat/neobyte/format"
	"github.com/alanbriolat/neobyte/scratch"
	"github.com/alanbriolat/neobyte/transcode"
	"github.com/alanbriolat/neobyte/util"
)

const Name = "youtube"

type Extractor struct {
	client     youtube.Client
	transcoder *transcode.Transcoder
}

// New creates an Extractor. The transcoder is used to turn audio-only streams into MP3 and may be nil to skip that.
func New(httpClient *http.Client, transcoder *transcode.Transcoder) *Extractor {
	return &Extractor{
		client:     youtube.Client{HTTPClient: httpClient},
		transcoder: transcoder,
	}
}

// Extractor registers Attempt under Name with the given priority.
func (e *Extractor) Extractor(priority int16) neobyte.Extractor {
	return neobyte.Extractor{Name: Name, Attempt: e.Attempt, Priority: priority}
}

func (e *Extractor) Attempt(ctx context.Context, req *neobyte.Request, lease *scratch.Lease) (*neobyte.Result, error) {
	logger := neobyte.Logger(ctx).Named(Name)

	videoID, err := util.YouTubeVideoIDString(req.URL)
	if err != nil {
		return nil, neobyte.NewError(neobyte.KindInvalidInput, err)
	}

	video, err := e.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get video info: %w", err))
	}
	logger.Info("got video info",
		zap.String("id", video.ID),
		zap.String("title", video.Title),
		zap.Duration("duration", video.Duration),
	)

	available := Formats(video.Formats, req.Audio())
	chosen, err := format.Select(available, req.Quality, req.Audio())
	if err != nil {
		return nil, neobyte.NewError(neobyte.KindNoMedia, err)
	}
	ytFormat := chosen.Handle.(*youtube.Format)
	logger.Info("selected format",
		zap.Int("itag", ytFormat.ItagNo),
		zap.String("quality", chosen.Quality),
		zap.String("type", chosen.Type),
	)

	stream, size, err := e.client.GetStreamContext(ctx, video, ytFormat)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get stream: %w", err))
	}
	defer stream.Close()

	d, err := neobyte.NewRequestDownload(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	d.AddExpectedBytes(int(size))
	path := lease.File(neobyte.ExtensionForMIME(ytFormat.MimeType))
	if err := d.SaveStream(path, stream); err != nil {
		return nil, err
	}

	converted := false
	if req.Audio() && e.transcoder != nil {
		path, converted = e.transcoder.ToAudio(ctx, path)
	}
	return &neobyte.Result{
		Path:        path,
		Title:       video.Title,
		Uploader:    video.Author,
		ContentType: contentType(ytFormat.MimeType, converted),
	}, nil
}

// contentType is the media type of the stream as YouTube reported it, which tells audio-only WebM apart from video.
// Once transcoded the file is MP3 and the extension says so.
func contentType(mimeType string, converted bool) string {
	if converted {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	return mediaType
}

// Formats lists the usable formats of a video: audio-only streams for audio, or progressive MP4 streams (video with
// sound) for video.
func Formats(list youtube.FormatList, audio bool) []neobyte.MediaFormat {
	var res []neobyte.MediaFormat
	for i := range list {
		f := &list[i]
		mimeType := strings.ToLower(f.MimeType)
		if audio {
			if !strings.HasPrefix(mimeType, "audio/") {
				continue
			}
			res = append(res, neobyte.MediaFormat{
				Quality: fmt.Sprintf("%dkbps", f.Bitrate/1000),
				Type:    f.MimeType,
				Size:    f.ContentLength,
				Locator: f.URL,
				Handle:  f,
			})
		} else {
			if !strings.HasPrefix(mimeType, "video/mp4") || f.AudioChannels == 0 {
				continue
			}
			quality := f.QualityLabel
			if quality == "" && f.Height > 0 {
				quality = fmt.Sprintf("%dp", f.Height)
			}
			res = append(res, neobyte.MediaFormat{
				Quality: quality,
				Type:    f.MimeType,
				Size:    f.ContentLength,
				Locator: f.URL,
				Handle:  f,
			})
		}
	}
	return res
}

func classify(err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired):
		return neobyte.NewError(neobyte.KindLoginRequired, err)
	case errors.Is(err, youtube.ErrVideoPrivate):
		return neobyte.NewError(neobyte.KindPrivate, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID), errors.Is(err, youtube.ErrVideoIDMinLength):
		return neobyte.NewError(neobyte.KindInvalidInput, err)
	default:
		return neobyte.NewError(neobyte.ClassifyMessage(err.Error()), err)
	}
}
