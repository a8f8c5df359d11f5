package entity

// VendorIdentity is the canonical identity of an invoice issuer.
type VendorIdentity struct {
	// Key is the canonicalized, stable lookup key derived from the
	// detected name. Templates are stored and fetched under this key.
	Key string `json:"key"`
	// DisplayName is the vendor name as detected on the document.
	DisplayName string `json:"display_name"`
}
