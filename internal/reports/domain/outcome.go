package domain

// Stage is a step of the webhook pipeline. A request ends in exactly one of
// the terminal outcomes below; Stage records how far it got.
type Stage string

const (
	StageReceived      Stage = "received"
	StageAuthenticated Stage = "authenticated"
	StageParsed        Stage = "parsed"
	StageCodeFound     Stage = "code_found"
	StageCodeAbsent    Stage = "code_absent"
	StageFetched       Stage = "fetched"
	StageExported      Stage = "exported"
	StagePublished     Stage = "published"
)

type Status string

const (
	StatusPublished Status = "published"
	StatusNoCode    Status = "no_code"
	StatusPartial   Status = "partial"
	StatusConflict  Status = "conflict"
)

// Outcome summarises a pipeline run that finished with a 200. PublishErr
// holds the swallowed storage failure of a partial run; NotifyErr holds a
// notification failure that did not change the status.
type Outcome struct {
	OrderID    OrderID
	Code       string
	Stage      Stage
	Status     Status
	Artifact   *Artifact
	Link       *PublishedLink
	PublishErr error
	NotifyErr  error
}
