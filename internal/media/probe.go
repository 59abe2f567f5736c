package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/maauso/overlaymerge/internal/geometry"
)

// ErrFFprobeExecution is returned when the ffprobe command fails.
var ErrFFprobeExecution = errors.New("ffprobe execution failed")

// boundsTolerance snaps stream bounds to the container bounds. Audio
// priming and rounding commonly leave streams a few milliseconds short of
// the container duration.
const boundsTolerance = 100 * time.Millisecond

// Open runs ffprobe against path and returns the asset description.
func (e *FFmpegEngine) Open(ctx context.Context, path string) (Asset, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return ParseProbe(path, stdout.Bytes())
}

// ParseProbe converts ffprobe JSON output into a FileAsset.
// Exported for testing without a real ffprobe binary.
func ParseProbe(path string, data []byte) (*FileAsset, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	asset := &FileAsset{
		Path:   path,
		Length: fromSeconds(parseFloat(raw.Format.Duration)),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		var kind Kind
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 {
				continue
			}
			kind = KindVideo
		case "audio":
			kind = KindAudio
		default:
			continue
		}

		track := Track{
			Source:             path,
			Index:              s.Index,
			Kind:               kind,
			Codec:              s.CodecName,
			PreferredTransform: geometry.Identity,
			TimeRange:          streamRange(s, asset.Length),
		}
		if kind == KindVideo {
			track.NaturalSize = geometry.Size{Width: float64(s.Width), Height: float64(s.Height)}
			track.PreferredTransform = s.displayTransform()
		}
		asset.Streams = append(asset.Streams, track)
	}

	return asset, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	StartTime   string            `json:"start_time"`
	Duration    string            `json:"duration"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
	SideData    []ffprobeSideData `json:"side_data_list"`
}

type ffprobeSideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// displayTransform returns the clockwise display rotation recorded for the
// stream. ffprobe reports the display matrix rotation counter-clockwise,
// while the legacy rotate tag is clockwise.
func (s *ffprobeStream) displayTransform() geometry.Transform {
	for _, sd := range s.SideData {
		if sd.SideDataType == "Display Matrix" && sd.Rotation != 0 {
			return geometry.RotationDegrees(-sd.Rotation)
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.ParseFloat(v, 64); err == nil && deg != 0 {
			return geometry.RotationDegrees(deg)
		}
	}
	return geometry.Identity
}

// streamRange returns the stream's span of the asset timeline, snapped to
// the asset bounds when within boundsTolerance.
func streamRange(s *ffprobeStream, assetDuration time.Duration) TimeRange {
	start := fromSeconds(parseFloat(s.StartTime))
	if start < 0 || start <= boundsTolerance {
		start = 0
	}

	end := assetDuration
	if s.Duration != "" {
		end = start + fromSeconds(parseFloat(s.Duration))
	}
	if assetDuration > 0 && end < assetDuration && assetDuration-end <= boundsTolerance {
		end = assetDuration
	}
	if end < start {
		end = start
	}
	return NewTimeRange(start, end-start)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
