package ipfs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
)

// Patcher updates an already-published IPFS tree in place: instead of
// re-adding the whole archive (hundreds of gigabytes of audio), it re-links
// only the small rendered files that change between publishes.
type Patcher struct {
	client    *Client
	patchable map[string]bool
	// progress, when set, is called once per re-linked file.
	progress func(name, path string, newCID cid.Cid)
}

// NewPatcher creates a patcher that re-links the given file names.
func NewPatcher(client *Client, patchable []string) *Patcher {
	set := make(map[string]bool, len(patchable))
	for _, name := range patchable {
		set[name] = true
	}
	return &Patcher{client: client, patchable: set}
}

// OnProgress registers a callback invoked per re-linked file.
func (p *Patcher) OnProgress(fn func(name, path string, newCID cid.Cid)) {
	p.progress = fn
}

// PatchRoot walks the published object behind root alongside the local
// rootDir. Patchable files that exist locally are added and re-linked;
// directories recurse so every season and recording index gets refreshed.
// Returns the CID of the new root object.
func (p *Patcher) PatchRoot(ctx context.Context, root cid.Cid, rootDir string) (cid.Cid, error) {
	obj, err := p.client.GetObject(ctx, root)
	if err != nil {
		return cid.Undef, err
	}

	for _, link := range obj.Links {
		local := filepath.Join(rootDir, link.Name)
		info, err := os.Stat(local)
		if err != nil {
			// Links without a local counterpart (the audio files) stay as
			// they are.
			continue
		}

		switch {
		case info.Mode().IsRegular() && p.patchable[link.Name]:
			newCID, err := p.client.Add(ctx, local)
			if err != nil {
				return cid.Undef, err
			}
			if p.progress != nil {
				p.progress(link.Name, local, newCID)
			}
			obj, err = p.client.AddLink(ctx, obj, link.Name, newCID)
			if err != nil {
				return cid.Undef, err
			}
		case info.IsDir():
			newCID, err := p.PatchRoot(ctx, link.Hash, local)
			if err != nil {
				return cid.Undef, err
			}
			obj, err = p.client.AddLink(ctx, obj, link.Name, newCID)
			if err != nil {
				return cid.Undef, err
			}
		}
	}

	return obj.CID, nil
}
