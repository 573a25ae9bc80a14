package models

import "time"

const (
	StatusCreated RecordStatus = "created"
	StatusUpdated RecordStatus = "updated"
	StatusFailed  RecordStatus = "failed"
)

type RecordStatus string

// BookmarkRecord is one element of a sync batch. The native browser fields
// are carried through but only url, title, description, sourceFolder and
// tags are stored.
type BookmarkRecord struct {
	ID           string   `json:"id,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
	Index        *int     `json:"index,omitempty"`
	DateAdded    *int64   `json:"dateAdded,omitempty"`
	URL          string   `json:"url" validate:"required,max=2000"`
	Title        string   `json:"title" validate:"required,max=500"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	SourceFolder *string  `json:"sourceFolder,omitempty" validate:"omitempty,max=200"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,dive,required,max=100"`
}

type BookmarkResp struct {
	ID           uint64    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	SourceFolder *string   `json:"sourceFolder,omitempty"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type TagResp struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
	Bookmarks      int64  `json:"bookmarks"`
}

type RecordResult struct {
	Index  int          `json:"index"`
	URL    string       `json:"url"`
	Status RecordStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// MergeReport lists the outcome of every record of a batch in batch order.
type MergeReport struct {
	Results   []RecordResult `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

func NewMergeReport(size int) *MergeReport {
	return &MergeReport{Results: make([]RecordResult, 0, size)}
}

func (r *MergeReport) Add(res RecordResult) {
	r.Results = append(r.Results, res)
	if res.Status == StatusFailed {
		r.Failed++
	} else {
		r.Succeeded++
	}
}

func (r *MergeReport) FailedURLs() []string {
	urls := make([]string, 0, r.Failed)
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			urls = append(urls, res.URL)
		}
	}
	return urls
}
