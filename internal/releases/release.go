// Package releases serves the cached list of published releases.
package releases

import "time"

type Author struct {
	Login     string `json:"login"`
	ID        uint64 `json:"id"`
	AvatarURL string `json:"avatar_url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"`
	Type      string `json:"type,omitempty"`
}

type Asset struct {
	URL                string     `json:"url"`
	BrowserDownloadURL string     `json:"browser_download_url"`
	ID                 uint64     `json:"id"`
	NodeID             string     `json:"node_id"`
	Name               string     `json:"name"`
	Label              *string    `json:"label"`
	State              string     `json:"state"`
	ContentType        string     `json:"content_type"`
	Size               int64      `json:"size"`
	DownloadCount      int64      `json:"download_count"`
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	Uploader           *Author    `json:"uploader,omitempty"`
}

type Release struct {
	URL             string     `json:"url"`
	HTMLURL         string     `json:"html_url"`
	AssetsURL       string     `json:"assets_url"`
	UploadURL       string     `json:"upload_url"`
	TarballURL      *string    `json:"tarball_url"`
	ZipballURL      *string    `json:"zipball_url"`
	ID              uint64     `json:"id"`
	NodeID          string     `json:"node_id"`
	TagName         string     `json:"tag_name"`
	TargetCommitish string     `json:"target_commitish"`
	Name            *string    `json:"name"`
	Body            *string    `json:"body"`
	Draft           bool       `json:"draft"`
	Prerelease      bool       `json:"prerelease"`
	CreatedAt       *time.Time `json:"created_at"`
	PublishedAt     *time.Time `json:"published_at"`
	Author          Author     `json:"author"`
	Assets          []Asset    `json:"assets"`
}
