// Package convert produces the Ogg Vorbis transcodes the site serves for
// streaming, from the FLAC originals contributors upload.
package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/model"
)

// Job is one pending FLAC to Ogg transcode.
type Job struct {
	Input  string
	Output string
	// Label identifies the job in progress reporting, e.g.
	// "Week 3 / track 2".
	Label string
}

// Converter transcodes FLAC files to Ogg Vorbis via ffmpeg.
type Converter struct {
	ffmpegPath string
	quality    int
	workers    int
}

// NewConverter returns a converter configured from ConvertSettings.
func NewConverter(cfg *config.ConvertSettings) *Converter {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	quality := 6
	if cfg.Quality != nil {
		quality = *cfg.Quality
	}
	return &Converter{
		ffmpegPath: cfg.FFmpegPath,
		quality:    quality,
		workers:    workers,
	}
}

// buildArgs assembles the ffmpeg argument list for one transcode.
func (c *Converter) buildArgs(input, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-n",
		"-i", input,
		"-codec:a", "libvorbis",
		"-q:a", strconv.Itoa(c.quality),
		output,
	}
}

// ConvertFile transcodes a single file. The output must not already exist.
func (c *Converter) ConvertFile(ctx context.Context, input, output string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, c.buildArgs(input, output)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// Drop a partial output so the next run retries cleanly.
		_ = os.Remove(output)
		return &ConvertError{
			Input:    input,
			Message:  fmt.Sprintf("ffmpeg failed (output: %s)", string(out)),
			Original: err,
		}
	}
	return nil
}

// MissingJobs walks the seasons and returns a job per stereo mix or track
// whose Ogg transcode does not exist on disk yet. Jobs whose FLAC original
// is also missing are skipped; the validator reports those.
func MissingJobs(seasons []*model.Season) []Job {
	var jobs []Job
	for _, season := range seasons {
		for _, rec := range season.Recordings {
			if job, ok := missingJob(rec.StereoMix.FlacOnDisk(), rec.StereoMix.VorbisOnDisk(), rec.Title+" / stereo mix"); ok {
				jobs = append(jobs, job)
			}
			for _, tr := range rec.Tracks {
				label := fmt.Sprintf("%s / track %d", rec.Title, tr.ID)
				if job, ok := missingJob(tr.FlacOnDisk(), tr.VorbisOnDisk(), label); ok {
					jobs = append(jobs, job)
				}
			}
		}
	}
	return jobs
}

func missingJob(flac, vorbis, label string) (Job, bool) {
	if _, err := os.Stat(vorbis); err == nil {
		return Job{}, false
	}
	if _, err := os.Stat(flac); err != nil {
		return Job{}, false
	}
	return Job{Input: flac, Output: vorbis, Label: label}, true
}

// ConvertAll runs the given jobs across the configured worker pool.
// progress, when non-nil, is called after each job with its error (nil on
// success). The returned count is the number of successful transcodes; the
// error is the first failure, after all workers have drained.
func (c *Converter) ConvertAll(ctx context.Context, jobs []Job, progress func(Job, error)) (int, error) {
	var converted int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			err := c.ConvertFile(ctx, job.Input, job.Output)
			if err == nil {
				atomic.AddInt64(&converted, 1)
			}
			if progress != nil {
				progress(job, err)
			}
			return err
		})
	}

	err := g.Wait()
	return int(atomic.LoadInt64(&converted)), err
}
