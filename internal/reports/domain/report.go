package domain

import "time"

// ReportRecord is one matched entity returned by the data store.
type ReportRecord struct {
	ID             string
	LastName       string
	FirstName      string
	Mobile         string
	Email          string
	PostalCode     string
	Classification string
}

// ReportHeader is the fixed column layout of every exported artifact.
var ReportHeader = []string{"id", "lastname", "firstname", "mobile", "email", "postal_code", "classification"}

// Row returns the record's fields in ReportHeader order.
func (r ReportRecord) Row() []string {
	return []string{r.ID, r.LastName, r.FirstName, r.Mobile, r.Email, r.PostalCode, r.Classification}
}

// Artifact is a written report file ready for publishing.
type Artifact struct {
	Name     string
	Path     string
	Size     int64
	Checksum string
	Rows     int
}

// PublishedLink grants time-bounded read access to one artifact.
type PublishedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LedgerEntry binds an order to the classification code its artifact is
// derived from.
type LedgerEntry struct {
	OrderID      OrderID
	Code         string
	ArtifactName string
	CreatedAt    time.Time
}
