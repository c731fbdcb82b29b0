package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/media/pipeline"
)

const (
	MasterPlaylist    = "master.m3u8"
	variantPlaylist   = "prog_index.m3u8"
	segmentPattern    = "fileSequence%d.ts"
	defaultSegmentSec = 6
	stderrTailBytes   = 2048
)

// Rendition is one rung of the bitrate ladder.
type Rendition struct {
	Height       int
	VideoBitrate string
	MaxRate      string
	BufSize      string
}

// DefaultLadder is ordered from the smallest rendition up.
var DefaultLadder = []Rendition{
	{Height: 360, VideoBitrate: "800k", MaxRate: "856k", BufSize: "1200k"},
	{Height: 720, VideoBitrate: "2800k", MaxRate: "2996k", BufSize: "4200k"},
	{Height: 1080, VideoBitrate: "5000k", MaxRate: "5350k", BufSize: "7500k"},
	{Height: 1440, VideoBitrate: "8000k", MaxRate: "8560k", BufSize: "12000k"},
}

type Config struct {
	FFmpegPath  string
	FFprobePath string
	OutputRoot  string
	// SegmentSeconds is the target HLS segment duration.
	SegmentSeconds int
	// Timeout bounds one Encode call, probe included. Zero means no limit.
	Timeout time.Duration
	Ladder  []Rendition
	Logger  zerolog.Logger
}

// runFunc executes a binary and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg encodes sources into multi-rendition HLS with ffmpeg.
type FFmpeg struct {
	cfg    Config
	run    runFunc
	logger zerolog.Logger
}

func NewFFmpeg(cfg Config) (*FFmpeg, error) {
	if cfg.OutputRoot == "" {
		return nil, fmt.Errorf("output root is required")
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = defaultSegmentSec
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative")
	}
	if len(cfg.Ladder) == 0 {
		cfg.Ladder = DefaultLadder
	}

	return &FFmpeg{
		cfg:    cfg,
		run:    execRun,
		logger: cfg.Logger.With().Str("component", "ffmpeg_transcoder").Logger(),
	}, nil
}

// Encode writes HLS output for sourcePath into OutputRoot/<job id> and
// returns that directory. The directory is returned on failure too so the
// caller can remove partial output.
func (f *FFmpeg) Encode(ctx context.Context, sourcePath string) (string, error) {
	id := pipeline.JobID(sourcePath)
	if id == "" {
		return "", fmt.Errorf("cannot derive output name from %q", sourcePath)
	}
	outDir := filepath.Join(f.cfg.OutputRoot, id)

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	info, err := f.Probe(ctx, sourcePath)
	if err != nil {
		return "", err
	}

	renditions := SelectRenditions(f.cfg.Ladder, info.Height)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	args := BuildArgs(sourcePath, outDir, renditions, info.HasAudio, f.cfg.SegmentSeconds)

	f.logger.Info().
		Str("source", sourcePath).
		Str("output_dir", outDir).
		Int("source_height", info.Height).
		Bool("has_audio", info.HasAudio).
		Int("renditions", len(renditions)).
		Msg("starting hls encode")

	started := time.Now()
	out, err := f.run(ctx, f.cfg.FFmpegPath, args...)
	if err != nil {
		return outDir, fmt.Errorf("ffmpeg: %w: %s", err, tail(out, stderrTailBytes))
	}

	f.logger.Info().
		Str("output_dir", outDir).
		Dur("elapsed", time.Since(started)).
		Msg("hls encode finished")
	return outDir, nil
}

// SourceInfo is what the encoder needs to know about the input.
type SourceInfo struct {
	Height   int
	HasAudio bool
}

// Probe inspects the first video stream and checks for any audio stream.
func (f *FFmpeg) Probe(ctx context.Context, sourcePath string) (SourceInfo, error) {
	out, err := f.run(ctx, f.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "stream=codec_type,height",
		"-of", "json",
		sourcePath,
	)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("ffprobe: %w: %s", err, tail(out, stderrTailBytes))
	}
	return parseProbe(out)
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbe(data []byte) (SourceInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return SourceInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info SourceInfo
	hasVideo := false
	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if !hasVideo {
				info.Height = s.Height
				hasVideo = true
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if !hasVideo {
		return SourceInfo{}, fmt.Errorf("source has no video stream")
	}
	return info, nil
}

// SelectRenditions keeps the rungs not taller than the source. The smallest
// rung is always kept so tiny sources still get a playlist.
func SelectRenditions(ladder []Rendition, sourceHeight int) []Rendition {
	if len(ladder) == 0 {
		return nil
	}
	var out []Rendition
	for _, r := range ladder {
		if r.Height <= sourceHeight {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = append(out, ladder[0])
	}
	return out
}

// BuildArgs returns the ffmpeg arguments for one HLS encode with a master
// playlist and one variant playlist per rendition under v<N>/.
func BuildArgs(sourcePath, outDir string, renditions []Rendition, hasAudio bool, segmentSeconds int) []string {
	args := []string{
		"-y",
		"-i", sourcePath,
		"-preset", "veryfast",
		"-g", "48",
		"-sc_threshold", "0",
	}

	for range renditions {
		args = append(args, "-map", "0:v:0")
		if hasAudio {
			args = append(args, "-map", "0:a:0")
		}
	}

	args = append(args, "-c:v", "libx264")
	for i, r := range renditions {
		idx := strconv.Itoa(i)
		args = append(args,
			"-filter:v:"+idx, fmt.Sprintf("scale=-2:%d", r.Height),
			"-b:v:"+idx, r.VideoBitrate,
			"-maxrate:v:"+idx, r.MaxRate,
			"-bufsize:v:"+idx, r.BufSize,
		)
	}
	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", "128k", "-ac", "2")
	}

	streams := make([]string, len(renditions))
	for i := range renditions {
		if hasAudio {
			streams[i] = fmt.Sprintf("v:%d,a:%d", i, i)
		} else {
			streams[i] = fmt.Sprintf("v:%d", i)
		}
	}

	args = append(args,
		"-var_stream_map", strings.Join(streams, " "),
		"-master_pl_name", MasterPlaylist,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outDir, "v%v", segmentPattern),
		filepath.Join(outDir, "v%v", variantPlaylist),
	)
	return args
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
