package ipfs

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

// SubdomainURL returns the dweb.link subdomain gateway URL for a CID. The
// CID is normalized to v1 because subdomain gateways need the
// case-insensitive base32 form.
func SubdomainURL(id cid.Cid) string {
	v1 := cid.NewCidV1(id.Type(), id.Hash())
	return fmt.Sprintf("https://%s.ipfs.dweb.link", v1.String())
}

// PathURL returns the /ipfs path URL for a CID on the given gateway.
func PathURL(gateway string, id cid.Cid) string {
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(gateway, "/"), id.String())
}
