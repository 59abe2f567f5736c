package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/overlaymerge/internal/geometry"
)

const portraitProbe = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "start_time": "0.000000",
      "duration": "10.000000",
      "side_data_list": [
        {"side_data_type": "Display Matrix", "rotation": -90}
      ]
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "start_time": "0.021333",
      "duration": "9.957000"
    },
    {
      "index": 2,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "width": 320,
      "height": 240,
      "disposition": {"attached_pic": 1}
    },
    {
      "index": 3,
      "codec_name": "mov_text",
      "codec_type": "subtitle"
    }
  ],
  "format": {
    "filename": "clip.mov",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "10.000000"
  }
}`

func TestParseProbe(t *testing.T) {
	asset, err := ParseProbe("clip.mov", []byte(portraitProbe))
	require.NoError(t, err)

	assert.Equal(t, "clip.mov", asset.URI())
	assert.Equal(t, 10*time.Second, asset.Duration())

	videos := asset.Tracks(KindVideo)
	require.Len(t, videos, 1, "attached pictures are not video tracks")
	v := videos[0]
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, "h264", v.Codec)
	assert.Equal(t, geometry.Size{Width: 1920, Height: 1080}, v.NaturalSize)
	assert.True(t, v.PreferredTransform.IsPortrait())
	assert.Equal(t, NewTimeRange(0, 10*time.Second), v.TimeRange)

	audios := asset.Tracks(KindAudio)
	require.Len(t, audios, 1)
	a := audios[0]
	assert.Equal(t, 1, a.Index)
	assert.True(t, a.NaturalSize.IsEmpty())
	assert.Equal(t, NewTimeRange(0, 10*time.Second), a.TimeRange, "priming offsets snap to the container bounds")
}

func TestParseProbe_RotateTag(t *testing.T) {
	data := `{
	  "streams": [
	    {"index": 0, "codec_type": "video", "width": 640, "height": 480, "duration": "2.0", "tags": {"rotate": "270"}}
	  ],
	  "format": {"duration": "2.0"}
	}`
	asset, err := ParseProbe("old.mp4", []byte(data))
	require.NoError(t, err)

	v := asset.Tracks(KindVideo)[0]
	turns, ok := v.PreferredTransform.QuarterTurns()
	require.True(t, ok)
	assert.Equal(t, 3, turns)
}

func TestParseProbe_NoVideo(t *testing.T) {
	data := `{"streams": [{"index": 0, "codec_type": "audio", "duration": "3.0"}], "format": {"duration": "3.0"}}`
	asset, err := ParseProbe("voice.m4a", []byte(data))
	require.NoError(t, err)

	assert.Empty(t, asset.Tracks(KindVideo))
	assert.Len(t, asset.Tracks(KindAudio), 1)
}

func TestParseProbe_InvalidJSON(t *testing.T) {
	_, err := ParseProbe("x", []byte("not json"))
	assert.Error(t, err)
}

func TestStreamRange_ShortStreamKeepsLength(t *testing.T) {
	s := &ffprobeStream{StartTime: "0", Duration: "5.0"}
	assert.Equal(t, NewTimeRange(0, 5*time.Second), streamRange(s, 10*time.Second))
}
