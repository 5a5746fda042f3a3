package transcode

import (
	"bytes"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// CaptureDate extracts the capture timestamp from EXIF metadata, trying
// DateTimeOriginal, then CreateDate, then ModifyDate. It returns false when
// the image has no parseable EXIF block, which is common for screenshots and
// web-sourced images and is not an error.
func CaptureDate(data []byte) (time.Time, bool) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata found")
		return time.Time{}, false
	}

	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		return t, true
	}
	if t := exifData.CreateDate(); !t.IsZero() {
		return t, true
	}
	if t := exifData.ModifyDate(); !t.IsZero() {
		return t, true
	}
	return time.Time{}, false
}
