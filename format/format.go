// Package format picks one rendition out of the formats a site offers.
package format

import (
	"errors"
	"strings"

	"github.com/alanbriolat/neobyte"
)

var ErrNoSuitableFormat = errors.New("no suitable format")

const (
	QualityHighest = "highest"
	QualityLowest  = "lowest"

	HeightHighest = 1080
	HeightLowest  = 144
	HeightDefault = 720
)

// ParseQuality maps a quality token to a height ceiling: "highest" is 1080, "lowest" is 144, "Np" is N, and anything
// else is 720.
func ParseQuality(token string) int {
	token = strings.ToLower(strings.TrimSpace(token))
	switch token {
	case QualityHighest:
		return HeightHighest
	case QualityLowest:
		return HeightLowest
	}
	if strings.HasSuffix(token, "p") {
		if h, ok := neobyte.ParseHeight(token); ok {
			return h
		}
	}
	return HeightDefault
}

// Select chooses a format for the requested quality.
//
// For audio, the first format whose type mentions "mp3" wins, then the first mentioning "audio".
//
// For video, formats without a parseable height are ignored. The largest height not above the quality's ceiling is
// chosen, or the smallest height if they are all above it. "highest" and "lowest" always pick the largest and smallest
// heights on offer. Between formats of the same height an MP4 container is preferred, then the first listed.
func Select(available []neobyte.MediaFormat, quality string, audio bool) (*neobyte.MediaFormat, error) {
	if audio {
		return selectAudio(available)
	}
	return selectVideo(available, quality)
}

func selectAudio(available []neobyte.MediaFormat) (*neobyte.MediaFormat, error) {
	for _, needle := range []string{"mp3", "audio"} {
		for i := range available {
			if strings.Contains(strings.ToLower(available[i].Type), needle) {
				return &available[i], nil
			}
		}
	}
	return nil, ErrNoSuitableFormat
}

type candidate struct {
	index  int
	height int
}

func selectVideo(available []neobyte.MediaFormat, quality string) (*neobyte.MediaFormat, error) {
	var candidates []candidate
	minHeight, maxHeight := 0, 0
	for i := range available {
		h, ok := available[i].Height()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{index: i, height: h})
		if minHeight == 0 || h < minHeight {
			minHeight = h
		}
		if h > maxHeight {
			maxHeight = h
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoSuitableFormat
	}

	var ceiling int
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case QualityHighest:
		ceiling = maxHeight
	case QualityLowest:
		ceiling = minHeight
	default:
		ceiling = ParseQuality(quality)
	}

	target := 0
	for _, c := range candidates {
		if c.height <= ceiling && c.height > target {
			target = c.height
		}
	}
	if target == 0 {
		target = minHeight
	}

	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.height != target {
			continue
		}
		if best == nil {
			best = c
		} else if !isMP4(available[best.index]) && isMP4(available[c.index]) {
			best = c
		}
	}
	return &available[best.index], nil
}

func isMP4(f neobyte.MediaFormat) bool {
	return strings.Contains(strings.ToLower(f.Type), "mp4")
}
