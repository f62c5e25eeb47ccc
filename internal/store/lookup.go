package store

import (
	"encoding/json"
)

// LookupKind classifies a hostname search response.
type LookupKind int

const (
	// NotFound means the store reported no matching document.
	NotFound LookupKind = iota
	// Found means at least one document matched and the first hit has an id.
	Found
	// Malformed means the response could not be interpreted.
	Malformed
)

// String returns the lookup kind name.
func (k LookupKind) String() string {
	switch k {
	case Found:
		return "found"
	case Malformed:
		return "malformed"
	default:
		return "not_found"
	}
}

// Lookup is the decoded outcome of a hostname search.
type Lookup struct {
	Kind LookupKind
	// ID of the first hit when Kind is Found.
	ID string
	// Total is hits.total.value as reported by the store.
	Total int64
	// Reason explains a Malformed lookup.
	Reason string
}

type searchResponse struct {
	Hits *struct {
		Total *struct {
			Value *int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// DecodeLookup interprets a _search response body. A document exists only
// when hits.total.value is present and positive; a response that says so
// without naming a first hit id is Malformed.
func DecodeLookup(body []byte) Lookup {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Lookup{Kind: Malformed, Reason: err.Error()}
	}

	if resp.Hits == nil || resp.Hits.Total == nil || resp.Hits.Total.Value == nil {
		return Lookup{Kind: NotFound}
	}

	total := *resp.Hits.Total.Value
	if total <= 0 {
		return Lookup{Kind: NotFound, Total: total}
	}

	if len(resp.Hits.Hits) == 0 || resp.Hits.Hits[0].ID == "" {
		return Lookup{Kind: Malformed, Total: total, Reason: "hits.total.value is positive but no hit id was returned"}
	}

	return Lookup{Kind: Found, ID: resp.Hits.Hits[0].ID, Total: total}
}
