// Package archive implements the photo-archive core: the SQLite store,
// the existing-state index, the reconciliation engine, and the sync
// orchestrator that drives the photostream and per-album sweeps.
package archive

import (
	"fmt"
	"strings"
	"time"
)

// AlbumRecord is an album row. The photo_count column stores the
// remote-reported count and is advisory only — read paths always compute
// the live count from the junction table.
type AlbumRecord struct {
	ID          string
	Title       string
	Description string
	PhotoCount  int
	CreatedDate string
	UpdatedDate string
}

// PhotoRecord is a photo row. Identity is the remote photo id, never
// regenerated; fields are overwritten last-writer-wins on re-sync.
type PhotoRecord struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Filename      string `json:"filename"`
	ThumbnailPath string `json:"thumbnail_path"`
	DateTaken     string `json:"date_taken"`
	DateUploaded  string `json:"date_uploaded"`
	Views         int    `json:"views"`
	Tags          string `json:"tags"`
	URLOriginal   string `json:"url_original"`
	URLThumbnail  string `json:"url_thumbnail"`
}

// CommentRecord is a comment row. One comment id maps to exactly one photo.
type CommentRecord struct {
	ID      string `json:"id"`
	PhotoID string `json:"-"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Date    string `json:"date"`
}

// AlbumSummary is the read-side album view with the live photo count
// computed from the junction table.
type AlbumSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PhotoCount  int    `json:"photo_count"`
}

// AlbumRef is a minimal album reference attached to a photo detail view.
type AlbumRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PhotoDetail is the read-side photo view: the row plus every album the
// photo is linked to and its comments.
type PhotoDetail struct {
	PhotoRecord

	Albums   []AlbumRef      `json:"albums"`
	Comments []CommentRecord `json:"comments"`
}

// Counts summarizes archive contents for status reporting.
type Counts struct {
	Albums   int `json:"albums"`
	Photos   int `json:"photos"`
	Links    int `json:"links"`
	Comments int `json:"comments"`
}

// Sweep identifies which enumeration a remote photo was encountered in.
type Sweep int

// Sweep contexts.
const (
	SweepPhotostream Sweep = iota
	SweepAlbum
)

func (s Sweep) String() string {
	if s == SweepPhotostream {
		return "photostream"
	}

	return "album"
}

// Action is the reconciliation decision for one remote photo.
type Action int

// Actions, one per row of the classification table.
const (
	// ActionSkip: photostream sweep, photo already known. The photostream
	// never creates links, so nothing to do and no counter moves.
	ActionSkip Action = iota

	// ActionCreate: new photo from the photostream sweep — fetch detail,
	// thumbnail, comments; persist the photo with no link.
	ActionCreate

	// ActionCreateAndLink: new photo from an album sweep — persist the
	// photo, then the link.
	ActionCreateAndLink

	// ActionLinkOnly: known photo newly appearing in an album — persist
	// the link only, no re-download.
	ActionLinkOnly

	// ActionNoop: known photo already linked to this album.
	ActionNoop
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionCreateAndLink:
		return "create+link"
	case ActionLinkOnly:
		return "link-only"
	case ActionNoop:
		return "noop"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Outcome is the terminal classification of one sync run.
type Outcome string

// Run outcomes surfaced to the CLI and the web trigger.
const (
	OutcomeUpToDate     Outcome = "UP_TO_DATE"
	OutcomeUpdated      Outcome = "UPDATED"
	OutcomeAuthRequired Outcome = "AUTH_REQUIRED"
)

// Report aggregates the counters of one sync run.
type Report struct {
	NewPhotos       int
	NewAssociations int
	SkippedPhotos   int
	PhotostreamNew  int

	// Per-item and per-album failures that were logged and skipped.
	PhotoErrors int
	AlbumErrors int

	AuthRequired bool
	Elapsed      time.Duration
}

// Outcome classifies the run.
func (r *Report) Outcome() Outcome {
	if r.AuthRequired {
		return OutcomeAuthRequired
	}

	if r.NewPhotos > 0 || r.NewAssociations > 0 {
		return OutcomeUpdated
	}

	return OutcomeUpToDate
}

// Summary renders the human-readable run summary surfaced by the CLI and
// the web trigger's status endpoint.
func (r *Report) Summary() string {
	if r.AuthRequired {
		return "authorization required: no valid session token (run 'flickrarc login')"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "sync finished in %s: ", r.Elapsed.Round(time.Second))

	if r.Outcome() == OutcomeUpToDate {
		b.WriteString("archive is up to date")
	} else {
		fmt.Fprintf(&b, "%d new photos (%d via photostream), %d new album associations",
			r.NewPhotos, r.PhotostreamNew, r.NewAssociations)
	}

	fmt.Fprintf(&b, ", %d already present", r.SkippedPhotos)

	if r.PhotoErrors > 0 || r.AlbumErrors > 0 {
		fmt.Fprintf(&b, " (%d photo errors, %d album errors)", r.PhotoErrors, r.AlbumErrors)
	}

	return b.String()
}
