package registry

import (
	"net/url"
	"strings"
)

// Explorer builds display-only links into the public ledger explorer.
type Explorer struct {
	BaseURL string
	Network string
}

// BlockURL returns <base>/<network>/block/<nft_id>, or "" when nftID is empty.
func (e Explorer) BlockURL(nftID string) string {
	nftID = strings.TrimSpace(nftID)
	if nftID == "" {
		return ""
	}
	base := strings.TrimRight(e.BaseURL, "/")
	return base + "/" + url.PathEscape(e.Network) + "/block/" + url.PathEscape(nftID)
}
