// Package validate checks the catalog against its invariants and against
// the data directory: schema-clean JSON is necessary but not sufficient, the
// referenced audio and torrent files also have to exist, tempos have to be
// plausible, and identifiers must not collide.
package validate

import (
	"fmt"
	"os"

	"github.com/em32/mlcatalog/catalog/model"
)

// Check is one validation outcome.
type Check struct {
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// RecordingReport collects the checks for one recording.
type RecordingReport struct {
	Title  string  `json:"title"`
	Checks []Check `json:"checks"`
}

// ErrorCount returns the number of failed checks.
func (r *RecordingReport) ErrorCount() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// SeasonReport collects the checks for one season.
type SeasonReport struct {
	Identifier string            `json:"identifier"`
	Title      string            `json:"title"`
	Checks     []Check           `json:"checks,omitempty"`
	Recordings []RecordingReport `json:"recordings"`
}

// Report is the full validation result for a catalog.
type Report struct {
	Seasons []SeasonReport `json:"seasons"`
	Errors  int            `json:"errors"`
}

// CheckSeasons validates the loaded seasons and returns the report.
func CheckSeasons(seasons []*model.Season) *Report {
	report := &Report{}

	seen := make(map[string]bool)
	for _, season := range seasons {
		sr := SeasonReport{
			Identifier: season.Identifier(),
			Title:      season.Title,
		}

		if seen[sr.Identifier] {
			sr.Checks = append(sr.Checks, Check{
				Name:   "season identifier",
				OK:     false,
				Detail: fmt.Sprintf("duplicate season identifier %q", sr.Identifier),
			})
		} else {
			seen[sr.Identifier] = true
			sr.Checks = append(sr.Checks, Check{Name: "season identifier", OK: true})
		}

		for _, rec := range season.Recordings {
			sr.Recordings = append(sr.Recordings, checkRecording(rec))
		}

		report.Seasons = append(report.Seasons, sr)
	}

	for _, sr := range report.Seasons {
		for _, c := range sr.Checks {
			if !c.OK {
				report.Errors++
			}
		}
		for _, rr := range sr.Recordings {
			report.Errors += rr.ErrorCount()
		}
	}

	return report
}

func checkRecording(rec *model.Recording) RecordingReport {
	rr := RecordingReport{Title: rec.Title}

	rr.Checks = append(rr.Checks, checkMetadata(rec)...)
	rr.Checks = append(rr.Checks, checkFiles(rec)...)

	return rr
}

// checkMetadata verifies the invariants the JSON schema cannot express.
func checkMetadata(rec *model.Recording) []Check {
	var checks []Check

	if rec.BPM != nil && *rec.BPM <= 0 {
		checks = append(checks, Check{
			Name:   "bpm",
			OK:     false,
			Detail: fmt.Sprintf("BPM must be positive, got %v", *rec.BPM),
		})
	} else {
		checks = append(checks, Check{Name: "bpm", OK: true})
	}

	tagCheck := Check{Name: "tags", OK: true}
	seenTags := make(map[string]bool)
	for _, tag := range rec.Tags {
		if tag == "" {
			tagCheck = Check{Name: "tags", OK: false, Detail: "empty tag"}
			break
		}
		if seenTags[tag] {
			tagCheck = Check{Name: "tags", OK: false, Detail: fmt.Sprintf("duplicate tag %q", tag)}
			break
		}
		seenTags[tag] = true
	}
	checks = append(checks, tagCheck)

	ytCheck := Check{Name: "youtube link", OK: true}
	if rec.YouTubeURL != "" {
		if _, err := model.ParseYouTubeTimestamp(rec.YouTubeURL); err != nil {
			ytCheck = Check{Name: "youtube link", OK: false, Detail: err.Error()}
		}
	}
	checks = append(checks, ytCheck)

	idCheck := Check{Name: "track ids", OK: true}
	seenIDs := make(map[int]bool)
	for _, tr := range rec.Tracks {
		if tr.ID <= 0 {
			idCheck = Check{Name: "track ids", OK: false, Detail: fmt.Sprintf("track id %d is not positive", tr.ID)}
			break
		}
		if seenIDs[tr.ID] {
			idCheck = Check{Name: "track ids", OK: false, Detail: fmt.Sprintf("duplicate track id %d", tr.ID)}
			break
		}
		seenIDs[tr.ID] = true
	}
	checks = append(checks, idCheck)

	return checks
}

// checkFiles verifies the on-disk files every recording references.
func checkFiles(rec *model.Recording) []Check {
	var checks []Check

	checks = append(checks,
		fileCheck("stereo mix flac", rec.StereoMix.FlacOnDisk()),
		fileCheck("stereo mix ogg", rec.StereoMix.VorbisOnDisk()),
		fileCheck("torrent file", rec.TorrentOnDisk()),
	)

	for _, tr := range rec.Tracks {
		checks = append(checks,
			fileCheck(fmt.Sprintf("track %d flac", tr.ID), tr.FlacOnDisk()),
			fileCheck(fmt.Sprintf("track %d ogg", tr.ID), tr.VorbisOnDisk()),
		)
	}

	return checks
}

func fileCheck(name, path string) Check {
	if _, err := os.Stat(path); err != nil {
		return Check{Name: name, Path: path, OK: false, Detail: "file does not exist"}
	}
	return Check{Name: name, Path: path, OK: true}
}
