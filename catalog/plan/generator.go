package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/em32/mlcatalog/catalog/convert"
	"github.com/em32/mlcatalog/catalog/model"
)

// Generator builds publish plans from loaded seasons. The plan covers the
// whole pipeline: transcode missing Ogg files, probe every streamable file
// for technical metadata, render each season's pages, and finally patch the
// IPFS root when patching is enabled.
type Generator struct {
	patchEnabled bool
}

// NewGenerator creates a plan generator.
func NewGenerator(patchEnabled bool) *Generator {
	return &Generator{patchEnabled: patchEnabled}
}

// GeneratePlan builds a plan for the given seasons. Convert items come
// first so probe items see the transcoded files; the executor runs render
// and patch items only after all file-level items finish.
func (g *Generator) GeneratePlan(seasons []*model.Season) *PublishPlan {
	p := NewPublishPlan(map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"seasons":      len(seasons),
	})

	for _, job := range convert.MissingJobs(seasons) {
		p.AddItem(&Item{
			ItemID:     uuid.NewString(),
			ItemType:   ItemTypeConvert,
			Name:       job.Label,
			Path:       job.Input,
			OutputPath: job.Output,
			Status:     ItemStatusPending,
			CreatedAt:  time.Now(),
		})
	}

	for _, season := range seasons {
		id := season.Identifier()
		for _, rec := range season.Recordings {
			p.AddItem(g.probeItem(id, rec.Title+" / stereo mix", rec.StereoMix.VorbisOnDisk()))
			for _, tr := range rec.Tracks {
				label := fmt.Sprintf("%s / track %d", rec.Title, tr.ID)
				p.AddItem(g.probeItem(id, label, tr.VorbisOnDisk()))
			}
		}

		p.AddItem(&Item{
			ItemID:    uuid.NewString(),
			ItemType:  ItemTypeRender,
			Name:      "render " + id,
			Season:    id,
			Status:    ItemStatusPending,
			CreatedAt: time.Now(),
		})
	}

	if g.patchEnabled {
		p.AddItem(&Item{
			ItemID:    uuid.NewString(),
			ItemType:  ItemTypePatch,
			Name:      "patch IPFS root",
			Status:    ItemStatusPending,
			CreatedAt: time.Now(),
		})
	}

	return p
}

func (g *Generator) probeItem(season, label, path string) *Item {
	return &Item{
		ItemID:    uuid.NewString(),
		ItemType:  ItemTypeProbe,
		Name:      label,
		Season:    season,
		Path:      path,
		Status:    ItemStatusPending,
		CreatedAt: time.Now(),
	}
}
