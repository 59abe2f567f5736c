package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/overlaymerge/internal/geometry"
	"github.com/maauso/overlaymerge/internal/layer"
)

// encoderSettings is the libx264 configuration behind a Preset.
type encoderSettings struct {
	preset string
	crf    int
	// maxDimension caps the longest output side; zero keeps the render size.
	maxDimension int
}

var encoderPresets = map[Preset]encoderSettings{
	PresetLowQuality:     {preset: "veryfast", crf: 30, maxDimension: 640},
	PresetMediumQuality:  {preset: "medium", crf: 25, maxDimension: 1280},
	PresetHighestQuality: {preset: "slow", crf: 18},
}

// copyableAudio lists codecs that can be stream-copied into an MPEG-4 file.
var copyableAudio = map[string]bool{"aac": true, "mp3": true, "alac": true, "ac3": true}

// exportPlan is a fully resolved ffmpeg invocation.
type exportPlan struct {
	args []string
	// duration is the output length used to turn timestamps into progress.
	duration time.Duration
}

// inputSet assigns ffmpeg input indexes to source files in first-use order.
type inputSet struct {
	sources []string
	index   map[string]int
}

func (s *inputSet) add(src string) int {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[src]; ok {
		return i
	}
	i := len(s.sources)
	s.index[src] = i
	s.sources = append(s.sources, src)
	return i
}

// buildExportPlan turns a composition and its video composition into ffmpeg
// arguments. The layer graph is rendered as a black canvas of the parent
// frame with every sublayer overlaid in order: the video layer receives the
// transformed composition video, image layers receive the files in images.
func buildExportPlan(comp *Composition, opts ExportOptions, images map[*layer.Layer]string, enc encoderSettings) (*exportPlan, error) {
	vc := opts.VideoComposition
	if err := vc.Validate(); err != nil {
		return nil, err
	}

	videoTracks := comp.Tracks(KindVideo)
	if len(videoTracks) == 0 || len(videoTracks[0].Segments) == 0 {
		return nil, ErrNoVideoTrack
	}
	video := videoTracks[0]

	end := video.TimeRange().End()
	instruction, li := vc.InstructionFor(video.ID)
	if instruction != nil && instruction.TimeRange.End() < end {
		end = instruction.TimeRange.End()
	}
	if li == nil {
		li = NewLayerInstruction(video.ID)
	}
	duration := li.VisibleUntil(end)
	if duration <= 0 {
		return nil, fmt.Errorf("%w: nothing visible before %s", ErrInvalidVideoComposition, end)
	}

	var audio *CompositionTrack
	if tracks := comp.Tracks(KindAudio); len(tracks) > 0 && len(tracks[0].Segments) > 0 {
		audio = tracks[0]
	}

	var inputs inputSet
	for _, seg := range video.Segments {
		inputs.add(seg.Source.Source)
	}
	if audio != nil {
		for _, seg := range audio.Segments {
			inputs.add(seg.Source.Source)
		}
	}

	fps := strconv.Itoa(vc.FrameRate)
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-nostats", "-progress", "pipe:1",
	}
	for _, src := range inputs.sources {
		// The display transform is applied explicitly by the layer instruction.
		args = append(args, "-noautorotate", "-i", src)
	}

	imageInputs := make(map[*layer.Layer]int)
	next := len(inputs.sources)
	for _, l := range vc.Layers.ImageLayers() {
		path, ok := images[l]
		if !ok {
			continue
		}
		args = append(args, "-loop", "1", "-framerate", fps, "-i", path)
		imageInputs[l] = next
		next++
	}

	var graph []string

	chains, label := segmentChains(video, &inputs, "v")
	graph = append(graph, chains...)

	videoFrame := vc.Layers.Video.Frame
	videoFilters := append(transformFilters(li.Transform),
		fmt.Sprintf("scale=%d:%d", pixels(videoFrame.Width), pixels(videoFrame.Height)),
		"setsar=1",
		"fps="+fps,
	)
	graph = append(graph, label+strings.Join(videoFilters, ",")+"[vid]")

	parent := vc.Layers.Parent.Frame
	graph = append(graph, fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s[canvas]",
		pixels(parent.Width), pixels(parent.Height), fps, seconds(duration)))

	current := "[canvas]"
	for i, l := range vc.Layers.Parent.Sublayers {
		var source string
		switch l.Kind {
		case layer.KindVideo:
			source = "[vid]"
		case layer.KindImage:
			idx, ok := imageInputs[l]
			if !ok || l.Frame.Width < 1 || l.Frame.Height < 1 {
				continue
			}
			source = fmt.Sprintf("[img%d]", i)
			graph = append(graph, fmt.Sprintf("[%d:v]scale=%d:%d,format=rgba%s",
				idx, pixels(l.Frame.Width), pixels(l.Frame.Height), source))
		default:
			continue
		}
		out := fmt.Sprintf("[l%d]", i)
		graph = append(graph, fmt.Sprintf("%s%soverlay=x=%d:y=%d:shortest=1%s",
			current, source, int(math.Round(l.Frame.X)), int(math.Round(l.Frame.Y)), out))
		current = out
	}

	outW, outH := outputDimensions(geometry.Size{Width: parent.Width, Height: parent.Height}, enc.maxDimension)
	graph = append(graph, fmt.Sprintf("%sscale=%d:%d,setsar=1,format=yuv420p[out]", current, outW, outH))

	var audioArgs []string
	if audio != nil {
		if canCopyAudio(audio, opts.FileType) {
			seg := audio.Segments[0]
			audioArgs = []string{
				"-map", fmt.Sprintf("%d:%d", inputs.index[seg.Source.Source], seg.Source.Index),
				"-c:a", "copy",
			}
		} else {
			chains, label := segmentChains(audio, &inputs, "a")
			graph = append(graph, chains...)
			graph = append(graph, label+"anull[aud]")
			audioArgs = []string{"-map", "[aud]", "-c:a", "aac", "-b:a", "128k"}
		}
	}

	args = append(args, "-filter_complex", strings.Join(graph, ";"), "-map", "[out]")
	args = append(args, audioArgs...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", enc.preset,
		"-crf", strconv.Itoa(enc.crf),
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-t", seconds(duration),
		"-f", string(opts.FileType),
	)
	if opts.FileType == FileTypeMPEG4 {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, opts.OutputPath)

	return &exportPlan{args: args, duration: duration}, nil
}

// segmentChains trims every segment of a track out of its source and joins
// them in timeline order. It returns the filters and the output pad label.
func segmentChains(track *CompositionTrack, inputs *inputSet, prefix string) ([]string, string) {
	trim, setpts, video, audio := "trim", "setpts", 1, 0
	if track.Kind == KindAudio {
		trim, setpts, video, audio = "atrim", "asetpts", 0, 1
	}

	chains := make([]string, 0, len(track.Segments)+1)
	labels := make([]string, 0, len(track.Segments))
	for i, seg := range track.Segments {
		label := fmt.Sprintf("[%s%d]", prefix, i)
		chains = append(chains, fmt.Sprintf("[%d:%d]%s=start=%s:duration=%s,%s=PTS-STARTPTS%s",
			inputs.index[seg.Source.Source], seg.Source.Index,
			trim, seconds(seg.SourceRange.Start), seconds(seg.SourceRange.Duration),
			setpts, label))
		labels = append(labels, label)
	}
	if len(labels) == 1 {
		return chains, labels[0]
	}

	joined := fmt.Sprintf("[%scat]", prefix)
	chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=%d:a=%d%s",
		strings.Join(labels, ""), len(labels), video, audio, joined))
	return chains, joined
}

// transformFilters maps a display transform onto ffmpeg filters. Cardinal
// rotations use lossless transposes; anything else falls back to rotate.
func transformFilters(t geometry.Transform) []string {
	var filters []string
	if t.IsReflected() {
		filters = append(filters, "vflip")
	}

	turns, ok := t.QuarterTurns()
	if !ok {
		angle := t.Decompose().Rotation
		return append(filters, fmt.Sprintf("rotate=%.6f:ow=rotw(%.6f):oh=roth(%.6f):c=black", angle, angle, angle))
	}

	switch turns {
	case 1:
		filters = append(filters, "transpose=clock")
	case 2:
		filters = append(filters, "hflip", "vflip")
	case 3:
		filters = append(filters, "transpose=cclock")
	}
	return filters
}

// canCopyAudio reports whether the audio track can be passed through
// without re-encoding: a single segment starting at zero on both
// timelines, in a codec the container accepts.
func canCopyAudio(track *CompositionTrack, fileType FileType) bool {
	if len(track.Segments) != 1 {
		return false
	}
	seg := track.Segments[0]
	if seg.SourceRange.Start != 0 || seg.Target.Start != 0 {
		return false
	}
	return fileType == FileTypeQuickTimeMovie || copyableAudio[seg.Source.Codec]
}

// outputDimensions fits size inside maxDimension (when set), keeping the
// aspect ratio, and rounds both sides to even numbers for yuv420p.
func outputDimensions(size geometry.Size, maxDimension int) (int, int) {
	w, h := size.Width, size.Height
	if longest := math.Max(w, h); maxDimension > 0 && longest > float64(maxDimension) {
		scale := float64(maxDimension) / longest
		w, h = w*scale, h*scale
	}
	return even(w), even(h)
}

func even(v float64) int {
	n := int(math.Round(v))
	n -= n % 2
	if n < 2 {
		n = 2
	}
	return n
}

func pixels(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		n = 1
	}
	return n
}
