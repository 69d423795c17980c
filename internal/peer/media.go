package peer

import (
	"log/slog"

	pion "github.com/pion/webrtc/v4"
)

// Media holds the local tracks offered to every peer in the mesh. Video is
// optional: when the camera cannot be opened the session continues with
// microphone only, and Retry can attempt the camera again later.
type Media struct {
	Audio *pion.TrackLocalStaticSample
	Video *pion.TrackLocalStaticSample
}

// Acquire opens the local media sources. A camera failure degrades to
// audio-only rather than failing the session; an audio failure is fatal.
func Acquire() (*Media, error) {
	audio, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus},
		"audio", "roomtd",
	)
	if err != nil {
		return nil, NewError("acquire microphone", err)
	}

	m := &Media{Audio: audio}
	if err := m.Retry(); err != nil {
		slog.Warn("camera unavailable, continuing with audio only", "err", err)
	}
	return m, nil
}

// Retry attempts to open the camera after a failed or skipped acquisition.
func (m *Media) Retry() error {
	if m.Video != nil {
		return nil
	}
	video, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8},
		"video", "roomtd",
	)
	if err != nil {
		return NewError("acquire camera", err)
	}
	m.Video = video
	return nil
}

// Tracks returns the tracks to attach to a new peer connection.
func (m *Media) Tracks() []pion.TrackLocal {
	tracks := []pion.TrackLocal{m.Audio}
	if m.Video != nil {
		tracks = append(tracks, m.Video)
	}
	return tracks
}
