// Package ipfs wraps the ipfs CLI for the operations the publish pipeline
// needs: reading DAG objects, re-linking changed files into the root
// object, and priming public gateways after a publish.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"
)

// Link is one entry of an IPFS object's link table.
type Link struct {
	Name string
	Hash cid.Cid
	Size uint64
}

// Object is an IPFS DAG object with its own CID attached.
type Object struct {
	CID   cid.Cid
	Links []Link
}

// objectJSON mirrors the --encoding=json output of ipfs object get.
type objectJSON struct {
	Links []struct {
		Name string `json:"Name"`
		Hash string `json:"Hash"`
		Size uint64 `json:"Size"`
	} `json:"Links"`
}

// hashJSON mirrors the output of ipfs object patch.
type hashJSON struct {
	Hash string `json:"Hash"`
}

// Client runs a local ipfs binary.
type Client struct {
	binary string
}

// NewClient returns a client invoking the given ipfs binary.
func NewClient(binary string) *Client {
	if binary == "" {
		binary = "ipfs"
	}
	return &Client{binary: binary}
}

// run executes one ipfs command and returns its stdout.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Args:     args,
			Stderr:   strings.TrimSpace(stderr.String()),
			Original: err,
		}
	}
	return stdout.Bytes(), nil
}

// GetObject fetches the object behind a CID.
func (c *Client) GetObject(ctx context.Context, id cid.Cid) (*Object, error) {
	out, err := c.run(ctx, "object", "get", id.String(), "--encoding=json")
	if err != nil {
		return nil, err
	}
	return parseObject(id, out)
}

// parseObject decodes the JSON form of an object, attaching its CID.
func parseObject(id cid.Cid, data []byte) (*Object, error) {
	var raw objectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode ipfs object: %w", err)
	}

	obj := &Object{CID: id, Links: make([]Link, 0, len(raw.Links))}
	for _, l := range raw.Links {
		h, err := cid.Decode(l.Hash)
		if err != nil {
			return nil, fmt.Errorf("invalid link hash %q: %w", l.Hash, err)
		}
		obj.Links = append(obj.Links, Link{Name: l.Name, Hash: h, Size: l.Size})
	}
	return obj, nil
}

// AddLink re-links name to child in obj and returns the resulting object.
func (c *Client) AddLink(ctx context.Context, obj *Object, name string, child cid.Cid) (*Object, error) {
	out, err := c.run(ctx, "object", "patch", "add-link", obj.CID.String(), name, child.String(), "--encoding=json")
	if err != nil {
		return nil, err
	}

	var h hashJSON
	if err := json.Unmarshal(out, &h); err != nil {
		return nil, fmt.Errorf("failed to decode patch result: %w", err)
	}
	newCID, err := cid.Decode(h.Hash)
	if err != nil {
		return nil, fmt.Errorf("invalid patched hash %q: %w", h.Hash, err)
	}

	return c.GetObject(ctx, newCID)
}

// Add adds a single file without pinning it and returns its CID. The file
// stays referenced through the patched root object instead.
func (c *Client) Add(ctx context.Context, path string) (cid.Cid, error) {
	out, err := c.run(ctx, "add", "--pin=false", "-q", path)
	if err != nil {
		return cid.Undef, err
	}
	return cid.Decode(strings.TrimSpace(string(out)))
}
